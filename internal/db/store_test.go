package db_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/shamela/internal/db"
	"github.com/lherron/shamela/internal/domain"
	"github.com/lherron/shamela/internal/merge"
	"github.com/lherron/shamela/internal/testutil"
)

func basePageTable() testutil.Table {
	return testutil.Table{
		Name:    "page",
		Columns: []string{"id INTEGER PRIMARY KEY", "content TEXT", "part TEXT", "page INTEGER", "number INTEGER", "is_deleted TEXT"},
		Rows: [][]interface{}{
			{1, "one", "1", 1, 10, "0"},
			{2, "two", "1", 2, 20, "0"},
			{3, "three", "1", 3, 30, "0"},
		},
	}
}

func TestOpenReadOnly_Missing(t *testing.T) {
	_, err := db.OpenReadOnly(context.Background(), db.DriverCGO, filepath.Join(t.TempDir(), "nope.db"))
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestOpenReadOnly_NotADatabase(t *testing.T) {
	for _, driver := range db.Drivers {
		t.Run(driver, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), "junk.db", "this is definitely not a sqlite file, just text padding it out")
			_, err := db.OpenReadOnly(context.Background(), driver, path)
			assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := db.Open("postgres", filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, err)
}

func TestStore_ReadsTables(t *testing.T) {
	ctx := context.Background()
	path := testutil.TempDB(t, "book.db", basePageTable(), testutil.Table{Name: "title", Columns: testutil.TitleColumns})

	for _, driver := range db.Drivers {
		t.Run(driver, func(t *testing.T) {
			database, err := db.OpenReadOnly(ctx, driver, path)
			require.NoError(t, err)
			defer database.Close()

			tables, err := database.Tables(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"page", "title"}, tables)

			cols, err := database.Columns(ctx, "page")
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "content", "part", "page", "number", "is_deleted"}, merge.ColumnNames(cols))
			assert.True(t, cols[0].PrimaryKey)
			assert.Equal(t, "INTEGER", cols[0].Type)

			rows, err := database.Rows(ctx, "page")
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.Equal(t, int64(2), rows[1]["id"])
			assert.Equal(t, "two", rows[1]["content"])

			_, err = database.Columns(ctx, "author")
			assert.ErrorIs(t, err, domain.ErrSchemaMissing)
		})
	}
}

func TestMergeTable_IntoSQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	basePath := testutil.CreateDB(t, filepath.Join(dir, "base.db"), basePageTable())
	patchPath := testutil.CreateDB(t, filepath.Join(dir, "patch.db"), testutil.Table{
		Name:    "page",
		Columns: []string{"id INTEGER PRIMARY KEY", "content TEXT", "part TEXT", "page TEXT", "number TEXT", "services TEXT", "is_deleted TEXT"},
		Rows: [][]interface{}{
			{1, "#", "#", "#", "#", "#", "1"},
			{2, "two, revised", "#", "#", "#", "tafsir", "0"},
			{4, "four", "1", "4", "40", nil, "0"},
		},
	})

	for _, driver := range db.Drivers {
		t.Run(driver, func(t *testing.T) {
			base, err := db.OpenReadOnly(ctx, driver, basePath)
			require.NoError(t, err)
			defer base.Close()
			patch, err := db.OpenReadOnly(ctx, driver, patchPath)
			require.NoError(t, err)
			defer patch.Close()
			target, err := db.Open(driver, filepath.Join(t.TempDir(), "merged.db"))
			require.NoError(t, err)
			defer target.Close()

			n, err := merge.MergeTable(ctx, base, patch, target, "page", merge.Options{})
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			cols, err := target.Columns(ctx, "page")
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "content", "part", "page", "number", "is_deleted", "services"}, merge.ColumnNames(cols))

			var ids []int64
			rows, err := target.QueryContext(ctx, `SELECT id FROM page ORDER BY id`)
			require.NoError(t, err)
			for rows.Next() {
				var id int64
				require.NoError(t, rows.Scan(&id))
				ids = append(ids, id)
			}
			require.NoError(t, rows.Close())
			assert.Equal(t, []int64{2, 3, 4}, ids)

			var content string
			var number int64
			var services *string
			require.NoError(t, target.QueryRowContext(ctx, `SELECT content, number, services FROM page WHERE id = 2`).Scan(&content, &number, &services))
			assert.Equal(t, "two, revised", content)
			assert.Equal(t, int64(20), number)
			require.NotNil(t, services)
			assert.Equal(t, "tafsir", *services)
		})
	}
}

func TestMergeTable_IDTypesAndDeferredDeleteFlag(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	base := basePageTable()
	base.Rows[2] = []interface{}{3, "three", "1", 3, 30, "1"}
	basePath := testutil.CreateDB(t, filepath.Join(dir, "base.db"), base)
	patchPath := testutil.CreateDB(t, filepath.Join(dir, "patch.db"), testutil.Table{
		Name:    "page",
		Columns: []string{"id TEXT", "content TEXT", "part TEXT", "page TEXT", "number TEXT", "is_deleted TEXT"},
		Rows: [][]interface{}{
			{"2", "two, revised", "#", "#", "#", "#"},
			{"3", "three, revised", "2", "3", "30", "#"},
			{"5", "five", "2", "5", "50", "0"},
		},
	})

	for _, driver := range db.Drivers {
		t.Run(driver, func(t *testing.T) {
			baseDB, err := db.OpenReadOnly(ctx, driver, basePath)
			require.NoError(t, err)
			defer baseDB.Close()
			patchDB, err := db.OpenReadOnly(ctx, driver, patchPath)
			require.NoError(t, err)
			defer patchDB.Close()
			target, err := db.Open(driver, filepath.Join(t.TempDir(), "merged.db"))
			require.NoError(t, err)
			defer target.Close()

			n, err := merge.MergeTable(ctx, baseDB, patchDB, target, "page", merge.Options{})
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			rows, err := target.Rows(ctx, "page")
			require.NoError(t, err)
			require.Len(t, rows, 3)

			var ids []interface{}
			for _, row := range rows {
				ids = append(ids, row["id"])
			}
			assert.Equal(t, []interface{}{int64(1), int64(2), int64(5)}, ids)
			assert.Equal(t, "two, revised", rows[1]["content"])
			assert.Equal(t, "0", rows[1]["is_deleted"])

			var count int
			require.NoError(t, target.QueryRowContext(ctx, `SELECT COUNT(*) FROM page WHERE id = 3`).Scan(&count))
			assert.Zero(t, count, "base-deleted row stays deleted when the patch flag defers")
		})
	}
}

func TestOpenReadOnly_EscapedPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "odd?dir#1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := testutil.CreateDB(t, filepath.Join(dir, "book 1.db"), basePageTable())

	for _, driver := range db.Drivers {
		t.Run(driver, func(t *testing.T) {
			database, err := db.OpenReadOnly(context.Background(), driver, path)
			require.NoError(t, err)
			defer database.Close()

			rows, err := database.Rows(context.Background(), "page")
			require.NoError(t, err)
			assert.Len(t, rows, 3)

			_, err = database.ExecContext(context.Background(), `DELETE FROM page`)
			assert.Error(t, err, "read-only handle must reject writes")
		})
	}
}

func TestOpen_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.db")
	database, err := db.Open(db.DriverPure, path)
	require.NoError(t, err)
	require.NoError(t, database.CreateTable(context.Background(), "t", []merge.Column{{Name: "id", Type: "INTEGER", PrimaryKey: true}}))
	require.NoError(t, database.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"page"`, db.QuoteIdent("page"))
	assert.Equal(t, `"we""ird"`, db.QuoteIdent(`we"ird`))
}
