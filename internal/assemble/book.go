// Package assemble turns merged book and catalog tables into the public
// entities of package domain.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lherron/shamela/internal/domain"
	"github.com/lherron/shamela/internal/merge"
)

// Table names inside book and catalog archives.
const (
	PageTable     = "page"
	TitleTable    = "title"
	AuthorTable   = "author"
	BookTable     = "book"
	CategoryTable = "category"
)

// BookTables are the tables merged into a book.
var BookTables = []string{PageTable, TitleTable}

// CatalogTables are the tables that make up the catalog.
var CatalogTables = []string{AuthorTable, BookTable, CategoryTable}

// Options configures assembly.
type Options struct {
	// Sentinel overrides merge.DefaultSentinel.
	Sentinel string
	// Logger receives skipped-table notices. Nil discards them.
	Logger logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func (o Options) mergeOptions() merge.Options {
	return merge.Options{Sentinel: o.Sentinel, Logger: o.Logger}
}

// Book merges the page and title tables of base with patch and projects the
// result. patch may be nil. The two tables are merged concurrently; a table
// the base does not define yields an empty list.
func Book(ctx context.Context, base, patch merge.Store, opts Options) (*domain.BookData, error) {
	if base == nil {
		return nil, fmt.Errorf("book base: %w", domain.ErrSourceUnavailable)
	}

	data := &domain.BookData{
		Pages:  []domain.Page{},
		Titles: []domain.Title{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := mergedRows(gctx, base, patch, PageTable, opts)
		if err != nil {
			return err
		}
		pages, err := projectPages(rows)
		if err != nil {
			return err
		}
		data.Pages = pages
		return nil
	})
	g.Go(func() error {
		rows, err := mergedRows(gctx, base, patch, TitleTable, opts)
		if err != nil {
			return err
		}
		titles, err := projectTitles(rows)
		if err != nil {
			return err
		}
		data.Titles = titles
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return data, nil
}

// mergedRows loads and merges one table. A table missing from the base is
// logged and yields no rows.
func mergedRows(ctx context.Context, base, patch merge.Store, table string, opts Options) ([]merge.Row, error) {
	baseTable, patchTable, err := merge.LoadPair(ctx, base, patch, table)
	if errors.Is(err, domain.ErrSchemaMissing) {
		opts.logger().WithField("table", table).Warn("table not defined in base, skipping")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}

	merged := merge.Tables(baseTable, patchTable, opts.mergeOptions())
	opts.logger().WithFields(logrus.Fields{
		"table":   table,
		"base":    len(baseTable.Rows),
		"patched": patchTable != nil,
		"rows":    len(merged.Rows),
	}).Debug("merged table")
	return merged.Rows, nil
}

func projectPages(rows []merge.Row) ([]domain.Page, error) {
	pages := make([]domain.Page, 0, len(rows))
	for _, row := range rows {
		c := cellReader{table: PageTable, row: row}

		id, err := c.id()
		if err != nil {
			return nil, err
		}

		pages = append(pages, domain.Page{
			ID:      id,
			Content: c.text("content"),
			Part:    c.text("part"),
			Page:    c.text("page"),
			Number:  c.text("number"),
		})
	}
	return pages, nil
}

func projectTitles(rows []merge.Row) ([]domain.Title, error) {
	titles := make([]domain.Title, 0, len(rows))
	for _, row := range rows {
		c := cellReader{table: TitleTable, row: row}

		id, err := c.id()
		if err != nil {
			return nil, err
		}
		page, _, err := c.integer("page")
		if err != nil {
			return nil, err
		}
		parent, _, err := c.integer("parent")
		if err != nil {
			return nil, err
		}

		titles = append(titles, domain.Title{
			ID:      id,
			Content: c.text("content"),
			Page:    page,
			Parent:  parent,
		})
	}
	return titles, nil
}
