package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/lherron/shamela/internal/db"
)

// Table describes a fixture table. Columns are SQL column definitions such as
// "id INTEGER PRIMARY KEY"; the first word of each is the column name.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]interface{}
}

// PageColumns is the page table layout of a book archive
var PageColumns = []string{"id INTEGER PRIMARY KEY", "content TEXT", "part TEXT", "page INTEGER", "number INTEGER", "services TEXT", "is_deleted TEXT"}

// TitleColumns is the title table layout of a book archive
var TitleColumns = []string{"id INTEGER PRIMARY KEY", "content TEXT", "page INTEGER", "parent INTEGER", "is_deleted TEXT"}

// CreateDB writes a SQLite database at path containing the given tables
func CreateDB(t *testing.T, path string, tables ...Table) string {
	t.Helper()

	database, err := db.Open(db.DriverCGO, path)
	if err != nil {
		t.Fatalf("Failed to create fixture database: %v", err)
	}
	defer database.Close()

	for _, table := range tables {
		createTable(t, database.DB, table)
	}
	return path
}

// TempDB creates a fixture database in a fresh temporary directory
func TempDB(t *testing.T, name string, tables ...Table) string {
	t.Helper()
	return CreateDB(t, filepath.Join(t.TempDir(), name), tables...)
}

func createTable(t *testing.T, database *sql.DB, table Table) {
	t.Helper()

	names := make([]string, len(table.Columns))
	marks := make([]string, len(table.Columns))
	for i, def := range table.Columns {
		names[i] = db.QuoteIdent(strings.Fields(def)[0])
		marks[i] = "?"
	}

	stmt := "CREATE TABLE " + db.QuoteIdent(table.Name) + " (" + strings.Join(table.Columns, ", ") + ")"
	if _, err := database.Exec(stmt); err != nil {
		t.Fatalf("Failed to create table %s: %v", table.Name, err)
	}

	insert := "INSERT INTO " + db.QuoteIdent(table.Name) + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	for _, row := range table.Rows {
		if _, err := database.Exec(insert, row...); err != nil {
			t.Fatalf("Failed to insert into %s: %v", table.Name, err)
		}
	}
}

// ZipFiles writes a zip archive at path. files maps member names to the
// paths of the files to store.
func ZipFiles(t *testing.T, path string, files map[string]string) string {
	t.Helper()

	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip %s: %v", path, err)
	}
	defer out.Close()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(out)
	for _, name := range names {
		data, err := os.ReadFile(files[name])
		if err != nil {
			t.Fatalf("Failed to read %s: %v", files[name], err)
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s to zip: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("Failed to write %s to zip: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return path
}

// WriteFile writes content to a file in dir
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile reads content from a file
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}
