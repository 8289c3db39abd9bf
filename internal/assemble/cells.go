package assemble

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/lherron/shamela/internal/domain"
	"github.com/lherron/shamela/internal/merge"
)

// cellReader reads typed values out of one merged row.
type cellReader struct {
	table string
	row   merge.Row
}

func (c cellReader) malformed(column string, err error) error {
	return &domain.MalformedCellError{
		Table:  c.table,
		Column: column,
		ID:     c.row[merge.IDColumn],
		Value:  c.row[column],
		Err:    err,
	}
}

// text returns the cell as a string; NULL yields "".
func (c cellReader) text(column string) string {
	switch v := c.row[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// integer returns the cell as an int64 and whether it held a value. Empty
// strings count as no value.
func (c cellReader) integer(column string) (int64, bool, error) {
	switch v := c.row[column].(type) {
	case nil:
		return 0, false, nil
	case int64:
		return v, true, nil
	case int:
		return int64(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false, c.malformed(column, fmt.Errorf("not an integer"))
		}
		return int64(v), true, nil
	case string, []byte:
		s := strings.TrimSpace(c.text(column))
		if s == "" {
			return 0, false, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false, c.malformed(column, err)
		}
		return n, true, nil
	default:
		return 0, false, c.malformed(column, fmt.Errorf("unexpected type %T", v))
	}
}

// id returns the row id, which must be present.
func (c cellReader) id() (int64, error) {
	n, ok, err := c.integer(merge.IDColumn)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, c.malformed(merge.IDColumn, fmt.Errorf("missing id"))
	}
	return n, nil
}

// year returns nil for NULL, empty or the unknown-year marker.
func (c cellReader) year(column string) (*int64, error) {
	n, ok, err := c.integer(column)
	if err != nil || !ok {
		return nil, err
	}
	return domain.KnownYear(n), nil
}

var authorSeparator = regexp.MustCompile(`\s*,\s*`)

// authorIDs parses the author cell: one id, or several separated by commas.
func (c cellReader) authorIDs(column string) (domain.AuthorIDs, error) {
	v := c.row[column]
	switch n := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return domain.AuthorIDs{n}, nil
	case int:
		return domain.AuthorIDs{int64(n)}, nil
	}

	var ids domain.AuthorIDs
	for _, part := range authorSeparator.Split(strings.TrimSpace(c.text(column)), -1) {
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, c.malformed(column, err)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

type rawPDFLinks struct {
	Alias    json.Number `json:"alias"`
	Cover    json.Number `json:"cover"`
	CoverURL string      `json:"cover_url"`
	Files    []string    `json:"files"`
	Root     string      `json:"root"`
	Size     json.Number `json:"size"`
}

// pdfLinks parses the pdf_links JSON cell. Each files entry is "name|id".
func (c cellReader) pdfLinks(column string) (*domain.PDFLinks, error) {
	s := strings.TrimSpace(c.text(column))
	if s == "" {
		return nil, nil
	}

	var raw rawPDFLinks
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, c.malformed(column, err)
	}

	links := &domain.PDFLinks{
		CoverURL: raw.CoverURL,
		Root:     strings.TrimSpace(raw.Root),
	}
	for _, f := range []struct {
		n   json.Number
		dst *int64
	}{{raw.Alias, &links.Alias}, {raw.Cover, &links.Cover}, {raw.Size, &links.Size}} {
		if f.n == "" {
			continue
		}
		n, err := f.n.Int64()
		if err != nil {
			return nil, c.malformed(column, err)
		}
		*f.dst = n
	}

	for _, entry := range raw.Files {
		name, id, _ := strings.Cut(entry, "|")
		file := domain.PDFFile{File: strings.TrimSpace(name), ID: strings.TrimSpace(id)}
		if file.File == "" {
			continue
		}
		links.Files = append(links.Files, file)
	}
	return links, nil
}
