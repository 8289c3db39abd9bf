package assemble

import (
	"context"
	"fmt"

	"github.com/lherron/shamela/internal/domain"
	"github.com/lherron/shamela/internal/merge"
)

// Catalog reads the author, book and category tables, each from its own
// source, drops soft-deleted rows and projects the rest. Catalog sources are
// full copies with no patch overlay.
func Catalog(ctx context.Context, authors, books, categories merge.Store, opts Options) (*domain.MasterData, error) {
	for name, s := range map[string]merge.Store{AuthorTable: authors, BookTable: books, CategoryTable: categories} {
		if s == nil {
			return nil, fmt.Errorf("%s source: %w", name, domain.ErrSourceUnavailable)
		}
	}

	master := &domain.MasterData{
		Authors:    []domain.Author{},
		Books:      []domain.Book{},
		Categories: []domain.Category{},
	}

	rows, err := mergedRows(ctx, authors, nil, AuthorTable, opts)
	if err != nil {
		return nil, err
	}
	if master.Authors, err = projectAuthors(rows); err != nil {
		return nil, err
	}

	rows, err = mergedRows(ctx, books, nil, BookTable, opts)
	if err != nil {
		return nil, err
	}
	if master.Books, err = projectBooks(rows); err != nil {
		return nil, err
	}

	rows, err = mergedRows(ctx, categories, nil, CategoryTable, opts)
	if err != nil {
		return nil, err
	}
	if master.Categories, err = projectCategories(rows); err != nil {
		return nil, err
	}

	return master, nil
}

func projectAuthors(rows []merge.Row) ([]domain.Author, error) {
	authors := make([]domain.Author, 0, len(rows))
	for _, row := range rows {
		c := cellReader{table: AuthorTable, row: row}

		id, err := c.id()
		if err != nil {
			return nil, err
		}

		deathColumn := "death"
		if _, ok := row["death_number"]; ok {
			deathColumn = "death_number"
		}
		death, err := c.year(deathColumn)
		if err != nil {
			return nil, err
		}

		authors = append(authors, domain.Author{
			ID:        id,
			Name:      c.text("name"),
			Biography: c.text("biography"),
			Death:     death,
		})
	}
	return authors, nil
}

func projectBooks(rows []merge.Row) ([]domain.Book, error) {
	books := make([]domain.Book, 0, len(rows))
	for _, row := range rows {
		c := cellReader{table: BookTable, row: row}

		id, err := c.id()
		if err != nil {
			return nil, err
		}
		b := domain.Book{
			ID:           id,
			Name:         c.text("name"),
			Bibliography: c.text("bibliography"),
			Hint:         c.text("hint"),
			Metadata:     c.text("metadata"),
		}

		for _, f := range []struct {
			column string
			dst    *int64
		}{
			{"category", &b.Category},
			{"type", &b.Type},
			{"printed", &b.Printed},
			{"major_release", &b.MajorRelease},
			{"minor_release", &b.MinorRelease},
		} {
			if *f.dst, _, err = c.integer(f.column); err != nil {
				return nil, err
			}
		}

		if b.Date, err = c.year("date"); err != nil {
			return nil, err
		}
		if b.Author, err = c.authorIDs("author"); err != nil {
			return nil, err
		}
		if b.PDFLinks, err = c.pdfLinks("pdf_links"); err != nil {
			return nil, err
		}

		books = append(books, b)
	}
	return books, nil
}

func projectCategories(rows []merge.Row) ([]domain.Category, error) {
	categories := make([]domain.Category, 0, len(rows))
	for _, row := range rows {
		c := cellReader{table: CategoryTable, row: row}

		id, err := c.id()
		if err != nil {
			return nil, err
		}
		categories = append(categories, domain.Category{ID: id, Name: c.text("name")})
	}
	return categories, nil
}
