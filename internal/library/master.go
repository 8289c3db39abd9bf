package library

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lherron/shamela/internal/assemble"
	"github.com/lherron/shamela/internal/domain"
	"github.com/lherron/shamela/internal/merge"
	"github.com/lherron/shamela/internal/shamela"
)

type catalogSources struct {
	authors, books, categories merge.Store
}

func (c catalogSources) byTable() map[string]merge.Store {
	return map[string]merge.Store{
		assemble.AuthorTable:   c.authors,
		assemble.BookTable:     c.books,
		assemble.CategoryTable: c.categories,
	}
}

func (l *Library) masterSources(ctx context.Context, w *workspace, version int) (*shamela.MasterMetadata, *catalogSources, error) {
	if err := domain.ValidateVersion(version); err != nil {
		return nil, nil, err
	}

	meta, err := l.fetcher.FetchMasterMetadata(ctx, version)
	if err != nil {
		return nil, nil, err
	}

	sources, err := w.fetch(ctx, l.fetcher, "master", meta.URL)
	if err != nil {
		return nil, nil, err
	}

	var opened [3]merge.Store
	for i, name := range assemble.CatalogTables {
		d, err := w.openNamed(ctx, name, sources)
		if err != nil {
			return nil, nil, err
		}
		opened[i] = d
	}

	return meta, &catalogSources{authors: opened[0], books: opened[1], categories: opened[2]}, nil
}

// GetMaster downloads the catalog release and returns its authors, books and
// categories. Version 0 requests the latest release.
func (l *Library) GetMaster(ctx context.Context, version int) (*domain.MasterData, *shamela.MasterMetadata, error) {
	w, err := l.newWorkspace()
	if err != nil {
		return nil, nil, err
	}
	defer l.closeWorkspace(w)

	meta, src, err := l.masterSources(ctx, w, version)
	if err != nil {
		return nil, nil, fmt.Errorf("master: %w", err)
	}

	data, err := assemble.Catalog(ctx, src.authors, src.books, src.categories, assemble.Options{Sentinel: l.sentinel, Logger: l.log})
	if err != nil {
		return nil, nil, fmt.Errorf("master: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"version":    meta.Version,
		"authors":    len(data.Authors),
		"books":      len(data.Books),
		"categories": len(data.Categories),
	}).Info("assembled catalog")
	return data, meta, nil
}

// DownloadMasterDB writes the catalog tables into one SQLite file at out.
// Soft-deleted rows are dropped.
func (l *Library) DownloadMasterDB(ctx context.Context, version int, out string) (*shamela.MasterMetadata, error) {
	w, err := l.newWorkspace()
	if err != nil {
		return nil, err
	}
	defer l.closeWorkspace(w)

	meta, src, err := l.masterSources(ctx, w, version)
	if err != nil {
		return nil, fmt.Errorf("master: %w", err)
	}

	stores := src.byTable()
	err = writeDatabase(ctx, l.driver, out, func(target merge.Target) error {
		for _, name := range assemble.CatalogTables {
			if _, err := merge.MergeAll(ctx, stores[name], nil, target, []string{name}, l.mergeOptions()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("master: %w", err)
	}

	l.log.WithFields(logrus.Fields{"version": meta.Version, "out": out}).Info("wrote catalog database")
	return meta, nil
}
