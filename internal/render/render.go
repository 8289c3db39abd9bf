package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/lherron/shamela/internal/domain"
)

// Format represents an output format
type Format string

const (
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
	FormatTable  Format = "table"
)

// Formats lists the formats accepted for entity output
var Formats = []Format{FormatJSON, FormatNDJSON, FormatYAML}

// ParseFormat validates an output format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatNDJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, ndjson or yaml)", s)
}

// Options for rendering
type Options struct {
	Format  Format
	Compact bool
}

// Renderer handles output rendering
type Renderer struct {
	writer io.Writer
	opts   Options
}

// NewRenderer creates a new renderer
func NewRenderer(writer io.Writer, opts Options) *Renderer {
	return &Renderer{
		writer: writer,
		opts:   opts,
	}
}

// Render writes data in the configured format
func (r *Renderer) Render(data interface{}) error {
	switch r.opts.Format {
	case FormatYAML:
		return r.RenderYAML(data)
	case FormatNDJSON:
		return r.RenderNDJSON(Records(data))
	default:
		return r.RenderJSON(data)
	}
}

// RenderJSON renders data as JSON
func (r *Renderer) RenderJSON(data interface{}) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetEscapeHTML(false)
	if !r.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// RenderNDJSON renders data as newline-delimited JSON
func (r *Renderer) RenderNDJSON(items []interface{}) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetEscapeHTML(false)
	for _, item := range items {
		if err := encoder.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

// RenderYAML renders data as YAML
func (r *Renderer) RenderYAML(data interface{}) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(data)
}

// Record is one NDJSON line: an entity tagged with its kind.
type Record struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Records flattens assembled data into one record per entity. Other values
// become a single record-less item.
func Records(data interface{}) []interface{} {
	var items []interface{}
	switch d := data.(type) {
	case *domain.BookData:
		for _, p := range d.Pages {
			items = append(items, Record{Type: "page", Data: p})
		}
		for _, t := range d.Titles {
			items = append(items, Record{Type: "title", Data: t})
		}
	case *domain.MasterData:
		for _, a := range d.Authors {
			items = append(items, Record{Type: "author", Data: a})
		}
		for _, b := range d.Books {
			items = append(items, Record{Type: "book", Data: b})
		}
		for _, c := range d.Categories {
			items = append(items, Record{Type: "category", Data: c})
		}
	case []interface{}:
		items = d
	default:
		items = []interface{}{data}
	}
	return items
}

// WriteFile renders data and atomically replaces path with the result
func WriteFile(path string, data interface{}, opts Options) error {
	var buf bytes.Buffer
	if err := NewRenderer(&buf, opts).Render(data); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// RenderTable renders data as a formatted table
func (r *Renderer) RenderTable(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if r.opts.Compact {
		fmt.Fprintln(r.writer, strings.Join(headers, "\t"))
		for _, row := range rows {
			fmt.Fprintln(r.writer, strings.Join(row, "\t"))
		}
		return nil
	}

	r.renderTableRow(headers, widths)
	r.renderTableSeparator(widths)
	for _, row := range rows {
		r.renderTableRow(row, widths)
	}

	return nil
}

func (r *Renderer) renderTableRow(cells []string, widths []int) {
	for i, cell := range cells {
		if i < len(widths) {
			fmt.Fprintf(r.writer, "%-*s", widths[i], cell)
			if i < len(cells)-1 {
				fmt.Fprint(r.writer, "  ")
			}
		}
	}
	fmt.Fprintln(r.writer)
}

func (r *Renderer) renderTableSeparator(widths []int) {
	for i, width := range widths {
		fmt.Fprint(r.writer, strings.Repeat("-", width))
		if i < len(widths)-1 {
			fmt.Fprint(r.writer, "  ")
		}
	}
	fmt.Fprintln(r.writer)
}
