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

// bookSources downloads and opens the base and, when the release has one,
// the patch database of a book. patch is an untyped nil when absent.
func (l *Library) bookSources(ctx context.Context, w *workspace, id int, v shamela.Versions) (*shamela.BookMetadata, merge.Store, merge.Store, error) {
	meta, err := l.fetcher.FetchBookMetadata(ctx, id, v)
	if err != nil {
		return nil, nil, nil, err
	}

	baseSources, err := w.fetch(ctx, l.fetcher, "base", meta.MajorReleaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	baseDB, err := w.openDatabase(ctx, "base", baseSources)
	if err != nil {
		return nil, nil, nil, err
	}

	var patch merge.Store
	if meta.HasPatch() {
		patchSources, err := w.fetch(ctx, l.fetcher, "patch", meta.MinorReleaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		patchDB, err := w.openDatabase(ctx, "patch", patchSources)
		if err != nil {
			return nil, nil, nil, err
		}
		patch = patchDB
	}

	return meta, baseDB, patch, nil
}

// GetBook downloads book id and returns its merged pages and titles.
func (l *Library) GetBook(ctx context.Context, id int, v shamela.Versions) (*domain.BookData, *shamela.BookMetadata, error) {
	w, err := l.newWorkspace()
	if err != nil {
		return nil, nil, err
	}
	defer l.closeWorkspace(w)

	meta, base, patch, err := l.bookSources(ctx, w, id, v)
	if err != nil {
		return nil, nil, fmt.Errorf("book %d: %w", id, err)
	}

	data, err := assemble.Book(ctx, base, patch, assemble.Options{Sentinel: l.sentinel, Logger: l.log})
	if err != nil {
		return nil, nil, fmt.Errorf("book %d: %w", id, err)
	}

	l.log.WithFields(logrus.Fields{
		"book":   id,
		"major":  meta.MajorRelease,
		"minor":  meta.MinorRelease,
		"pages":  len(data.Pages),
		"titles": len(data.Titles),
	}).Info("assembled book")
	return data, meta, nil
}

// DownloadBookDB writes the merged page and title tables of book id to a
// standalone SQLite file at out.
func (l *Library) DownloadBookDB(ctx context.Context, id int, v shamela.Versions, out string) (*shamela.BookMetadata, error) {
	w, err := l.newWorkspace()
	if err != nil {
		return nil, err
	}
	defer l.closeWorkspace(w)

	meta, base, patch, err := l.bookSources(ctx, w, id, v)
	if err != nil {
		return nil, fmt.Errorf("book %d: %w", id, err)
	}

	err = writeDatabase(ctx, l.driver, out, func(target merge.Target) error {
		_, err := merge.MergeAll(ctx, base, patch, target, assemble.BookTables, l.mergeOptions())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("book %d: %w", id, err)
	}

	l.log.WithFields(logrus.Fields{"book": id, "out": out}).Info("wrote book database")
	return meta, nil
}
