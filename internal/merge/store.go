package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lherron/shamela/internal/domain"
)

// Column describes one column of a stored table.
type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
}

// Store reads tables from a base or patch source.
type Store interface {
	// Tables lists the table names defined in the source.
	Tables(ctx context.Context) ([]string, error)
	// Columns returns the table's columns in declaration order, or an error
	// wrapping domain.ErrSchemaMissing when the table is not defined.
	Columns(ctx context.Context, table string) ([]Column, error)
	// Rows returns every row of the table in storage order.
	Rows(ctx context.Context, table string) ([]Row, error)
}

// Target receives merged tables.
type Target interface {
	CreateTable(ctx context.Context, table string, columns []Column) error
	AddColumn(ctx context.Context, table string, column Column) error
	InsertRows(ctx context.Context, table string, columns []string, rows []Row) error
}

// ColumnNames returns the names of columns in order.
func ColumnNames(columns []Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// ReconcileColumns is Reconcile over typed columns. The returned extras are
// the patch columns the base lacks; a target created from the base schema
// must add them before rows are inserted.
func ReconcileColumns(base, patch []Column) (all []Column, extras []Column) {
	byName := make(map[string]Column, len(base)+len(patch))
	for _, c := range patch {
		byName[c.Name] = c
	}
	for _, c := range base {
		byName[c.Name] = c
	}

	inBase := make(map[string]bool, len(base))
	for _, c := range base {
		inBase[c.Name] = true
	}

	for _, name := range Reconcile(ColumnNames(base), ColumnNames(patch)) {
		c := byName[name]
		all = append(all, c)
		if !inBase[name] {
			extras = append(extras, Column{Name: c.Name, Type: c.Type})
		}
	}
	return all, extras
}

// LoadTable reads a whole table from a store.
func LoadTable(ctx context.Context, s Store, name string) (*Table, error) {
	columns, err := s.Columns(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, err := s.Rows(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read %s rows: %w", name, err)
	}
	return &Table{Name: name, Columns: ColumnNames(columns), Rows: rows}, nil
}

// LoadPair reads a table from base and, when patch is non-nil and defines it,
// from patch. A table the patch does not define yields a nil patch table.
// A table the base does not define returns an error wrapping
// domain.ErrSchemaMissing.
func LoadPair(ctx context.Context, base, patch Store, name string) (baseTable, patchTable *Table, err error) {
	baseTable, err = LoadTable(ctx, base, name)
	if err != nil {
		return nil, nil, err
	}
	if patch == nil {
		return baseTable, nil, nil
	}
	patchTable, err = LoadTable(ctx, patch, name)
	if errors.Is(err, domain.ErrSchemaMissing) {
		return baseTable, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("patch: %w", err)
	}
	return baseTable, patchTable, nil
}

// MergeTable merges one table from base and patch into target: it creates
// the table from the base schema, adds the patch-only columns, then inserts
// the merged rows. It returns the number of rows written.
func MergeTable(ctx context.Context, base, patch Store, target Target, name string, opts Options) (int, error) {
	baseColumns, err := base.Columns(ctx, name)
	if err != nil {
		return 0, err
	}

	var patchColumns []Column
	var patchRows []Row
	if patch != nil {
		patchColumns, err = patch.Columns(ctx, name)
		switch {
		case errors.Is(err, domain.ErrSchemaMissing):
			patchColumns = nil
		case err != nil:
			return 0, fmt.Errorf("patch %s columns: %w", name, err)
		default:
			patchRows, err = patch.Rows(ctx, name)
			if err != nil {
				return 0, fmt.Errorf("patch %s rows: %w", name, err)
			}
		}
	}

	baseRows, err := base.Rows(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("base %s rows: %w", name, err)
	}

	all, extras := ReconcileColumns(baseColumns, patchColumns)

	if err := target.CreateTable(ctx, name, baseColumns); err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}
	for _, c := range extras {
		if err := target.AddColumn(ctx, name, c); err != nil {
			return 0, fmt.Errorf("add column %s.%s: %w", name, c.Name, err)
		}
	}

	columns := ColumnNames(all)
	rows := Merge(baseRows, patchRows, columns, opts)
	if err := target.InsertRows(ctx, name, columns, rows); err != nil {
		return 0, fmt.Errorf("insert %s: %w", name, err)
	}
	return len(rows), nil
}

// MergeAll runs MergeTable for each named table, or for every base table when
// names is empty. Tables missing from the base are logged and skipped.
// It returns the row count written per table.
func MergeAll(ctx context.Context, base, patch Store, target Target, names []string, opts Options) (map[string]int, error) {
	log := opts.logger()

	if len(names) == 0 {
		var err error
		names, err = base.Tables(ctx)
		if err != nil {
			return nil, fmt.Errorf("list base tables: %w", err)
		}
	}

	counts := make(map[string]int, len(names))
	for _, name := range names {
		n, err := MergeTable(ctx, base, patch, target, name, opts)
		if errors.Is(err, domain.ErrSchemaMissing) {
			log.WithField("table", name).Warn("table not defined in base, skipping")
			continue
		}
		if err != nil {
			return counts, err
		}
		counts[name] = n
		log.WithFields(logrus.Fields{"table": name, "rows": n}).Debug("merged table")
	}
	return counts, nil
}
