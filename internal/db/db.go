package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/lherron/shamela/internal/domain"
)

const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPure is modernc.org/sqlite.
	DriverPure = "sqlite"
)

// Drivers lists the accepted driver names.
var Drivers = []string{DriverCGO, DriverPure}

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
	path     string
	driver   string
	readOnly bool
}

// ValidateDriver checks that name is a registered SQLite driver
func ValidateDriver(name string) error {
	for _, d := range Drivers {
		if d == name {
			return nil
		}
	}
	return fmt.Errorf("unknown sqlite driver %q (want %s or %s)", name, DriverCGO, DriverPure)
}

// Open opens a writable SQLite database at the given path and applies pragmas.
// Used for scratch merge targets and output files.
func Open(driver, path string) (*DB, error) {
	if driver == "" {
		driver = DriverCGO
	}
	if err := ValidateDriver(driver); err != nil {
		return nil, err
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open(driver, fileURI(path, "rwc"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply pragmas
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	return &DB{DB: db, path: path, driver: driver}, nil
}

// OpenReadOnly opens an existing database extracted from an archive.
// A missing or unreadable file returns an error wrapping
// domain.ErrSourceUnavailable.
func OpenReadOnly(ctx context.Context, driver, path string) (*DB, error) {
	if driver == "" {
		driver = DriverCGO
	}
	if err := ValidateDriver(driver); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, domain.ErrSourceUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w: is a directory", path, domain.ErrSourceUnavailable)
	}

	db, err := sql.Open(driver, fileURI(path, "ro"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, domain.ErrSourceUnavailable, err)
	}

	// sql.Open is lazy; read the schema to prove the file is a database.
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w: %v", path, domain.ErrSourceUnavailable, err)
	}

	return &DB{DB: db, path: path, driver: driver, readOnly: true}, nil
}

// fileURI builds a SQLite URI for path. Characters such as '?' and '#' in the
// path are percent-encoded so they are not read as URI syntax.
func fileURI(path, mode string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: "mode=" + mode}
	return u.String()
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Driver returns the driver name the database was opened with
func (db *DB) Driver() string {
	return db.driver
}

// ReadOnly reports whether the database was opened read-only
func (db *DB) ReadOnly() bool {
	return db.readOnly
}
