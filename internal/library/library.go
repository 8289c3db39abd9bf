// Package library downloads release archives, opens them as table sources
// and hands them to the assemblers. Every call works in its own scratch
// directory, which is removed before the call returns.
package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lherron/shamela/internal/archive"
	"github.com/lherron/shamela/internal/db"
	"github.com/lherron/shamela/internal/domain"
	"github.com/lherron/shamela/internal/merge"
	"github.com/lherron/shamela/internal/shamela"
)

// Fetcher resolves release metadata and downloads archives.
// *shamela.Client implements it.
type Fetcher interface {
	FetchBookMetadata(ctx context.Context, id int, v shamela.Versions) (*shamela.BookMetadata, error)
	FetchMasterMetadata(ctx context.Context, version int) (*shamela.MasterMetadata, error)
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Options configures a Library.
type Options struct {
	// WorkDir holds per-call scratch directories. Defaults to os.TempDir().
	WorkDir string
	// Driver is the SQLite driver used to open sources.
	Driver string
	// Sentinel overrides merge.DefaultSentinel.
	Sentinel string
	Logger   logrus.FieldLogger
}

// Library assembles books and the catalog from remote releases.
type Library struct {
	fetcher  Fetcher
	workDir  string
	driver   string
	sentinel string
	log      logrus.FieldLogger
}

// New creates a Library.
func New(fetcher Fetcher, opts Options) *Library {
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	driver := opts.Driver
	if driver == "" {
		driver = db.DriverCGO
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Library{
		fetcher:  fetcher,
		workDir:  workDir,
		driver:   driver,
		sentinel: opts.Sentinel,
		log:      log,
	}
}

func (l *Library) mergeOptions() merge.Options {
	return merge.Options{Sentinel: l.sentinel, Logger: l.log}
}

// workspace is a scratch directory plus the databases opened inside it.
type workspace struct {
	dir    string
	driver string
	opened []*db.DB
	log    logrus.FieldLogger
}

func (l *Library) newWorkspace() (*workspace, error) {
	dir := filepath.Join(l.workDir, "shamela-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	return &workspace{dir: dir, driver: l.driver, log: l.log.WithField("work_dir", dir)}, nil
}

// Close closes every opened database and removes the directory.
func (w *workspace) Close() error {
	var firstErr error
	for _, d := range w.opened {
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.opened = nil
	if err := os.RemoveAll(w.dir); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to remove work directory: %w", err)
	}
	return firstErr
}

// fetch downloads url and extracts it into a subdirectory named label.
func (w *workspace) fetch(ctx context.Context, f Fetcher, label, url string) (archive.Sources, error) {
	zipPath := filepath.Join(w.dir, label+".zip")
	out, err := os.Create(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", zipPath, err)
	}

	n, err := f.Download(ctx, url, out)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", label, err)
	}

	sources, err := archive.ExtractFile(zipPath, filepath.Join(w.dir, label))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", label, err)
	}
	if err := os.Remove(zipPath); err != nil {
		w.log.WithError(err).Debug("failed to remove archive")
	}

	w.log.WithFields(logrus.Fields{"archive": label, "bytes": n, "members": len(sources)}).Debug("extracted archive")
	return sources, nil
}

// open opens an extracted member read-only. The database is closed with the
// workspace.
func (w *workspace) open(ctx context.Context, src archive.Source) (*db.DB, error) {
	d, err := db.OpenReadOnly(ctx, w.driver, src.Path)
	if err != nil {
		return nil, err
	}
	w.opened = append(w.opened, d)
	w.log.WithFields(logrus.Fields{"member": src.Name, "xxh3": src.DigestHex()}).Debug("opened source")
	return d, nil
}

// openDatabase opens the single database member of a book archive.
func (w *workspace) openDatabase(ctx context.Context, label string, sources archive.Sources) (*db.DB, error) {
	src, ok := sources.Database()
	if !ok {
		return nil, fmt.Errorf("%s archive has no database: %w", label, domain.ErrSourceUnavailable)
	}
	return w.open(ctx, src)
}

// openNamed opens the member called name, as catalog archives hold one
// database per table.
func (w *workspace) openNamed(ctx context.Context, name string, sources archive.Sources) (*db.DB, error) {
	src, ok := sources.Find(name)
	if !ok {
		return nil, fmt.Errorf("%s database not in archive: %w", name, domain.ErrSourceUnavailable)
	}
	return w.open(ctx, src)
}

// closeWorkspace is deferred by every public call.
func (l *Library) closeWorkspace(w *workspace) {
	if err := w.Close(); err != nil {
		l.log.WithError(err).Warn("failed to clean up work directory")
	}
}
