package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/lherron/shamela/internal/domain"
	"github.com/lherron/shamela/internal/merge"
)

var (
	_ merge.Store  = (*DB)(nil)
	_ merge.Target = (*DB)(nil)
)

// QuoteIdent quotes a table or column name for use in SQL text
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Tables lists user tables in name order
func (db *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return names, nil
}

// Columns returns a table's columns in declaration order
func (db *DB) Columns(ctx context.Context, table string) ([]merge.Column, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []merge.Column
	for rows.Next() {
		var c merge.Column
		var pk int
		if err := rows.Scan(&c.Name, &c.Type, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		c.PrimaryKey = pk > 0
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s in %s: %w", table, db.path, domain.ErrSchemaMissing)
	}
	return columns, nil
}

// Rows reads every row of a table in storage order
func (db *DB) Rows(ctx context.Context, table string) ([]merge.Row, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+QuoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	var out []merge.Row
	for rows.Next() {
		values := make([]interface{}, len(names))
		ptrs := make([]interface{}, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}

		row := make(merge.Row, len(names))
		for i, name := range names {
			row[name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}
	return out, nil
}

// CreateTable creates a table unless it already exists
func (db *DB) CreateTable(ctx context.Context, table string, columns []merge.Column) error {
	if len(columns) == 0 {
		return fmt.Errorf("create %s: no columns", table)
	}

	var pks int
	for _, c := range columns {
		if c.PrimaryKey {
			pks++
		}
	}

	defs := make([]string, 0, len(columns))
	var keys []string
	for _, c := range columns {
		def := QuoteIdent(c.Name)
		if c.Type != "" {
			def += " " + c.Type
		}
		if c.PrimaryKey && pks == 1 {
			def += " PRIMARY KEY"
		}
		if c.PrimaryKey && pks > 1 {
			keys = append(keys, QuoteIdent(c.Name))
		}
		defs = append(defs, def)
	}
	if len(keys) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", QuoteIdent(table), strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// AddColumn adds a nullable column to an existing table
func (db *DB) AddColumn(ctx context.Context, table string, column merge.Column) error {
	def := QuoteIdent(column.Name)
	if column.Type != "" {
		def += " " + column.Type
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", QuoteIdent(table), def)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to add column %s to %s: %w", column.Name, table, err)
	}
	return nil
}

// InsertRows inserts rows in a single transaction
func (db *DB) InsertRows(ctx context.Context, table string, columns []string, rows []merge.Row) error {
	if len(rows) == 0 {
		return nil
	}

	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdent(c)
		marks[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			args[i] = row[c]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert into %s: %w", table, err)
	}
	return nil
}
