package merge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lherron/shamela/internal/domain"
)

// MemStore is an in-memory Store and Target. It is safe for concurrent use.
type MemStore struct {
	mu      sync.RWMutex
	columns map[string][]Column
	rows    map[string][]Row
}

// NewMemStore returns a store holding copies of the given tables. Column
// types are left empty.
func NewMemStore(tables ...*Table) *MemStore {
	m := &MemStore{
		columns: make(map[string][]Column),
		rows:    make(map[string][]Row),
	}
	for _, t := range tables {
		cols := make([]Column, len(t.Columns))
		for i, name := range t.Columns {
			cols[i] = Column{Name: name, PrimaryKey: name == IDColumn}
		}
		m.columns[t.Name] = cols
		m.rows[t.Name] = copyRows(t.Rows)
	}
	return m
}

func (m *MemStore) Tables(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.columns))
	for name := range m.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemStore) Columns(ctx context.Context, table string) ([]Column, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cols, ok := m.columns[table]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", table, domain.ErrSchemaMissing)
	}
	return append([]Column(nil), cols...), nil
}

func (m *MemStore) Rows(ctx context.Context, table string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.columns[table]; !ok {
		return nil, fmt.Errorf("table %s: %w", table, domain.ErrSchemaMissing)
	}
	return copyRows(m.rows[table]), nil
}

func (m *MemStore) CreateTable(ctx context.Context, table string, columns []Column) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.columns[table]; ok {
		return nil
	}
	m.columns[table] = append([]Column(nil), columns...)
	return nil
}

func (m *MemStore) AddColumn(ctx context.Context, table string, column Column) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cols, ok := m.columns[table]
	if !ok {
		return fmt.Errorf("table %s: %w", table, domain.ErrSchemaMissing)
	}
	for _, c := range cols {
		if c.Name == column.Name {
			return fmt.Errorf("duplicate column name: %s", column.Name)
		}
	}
	m.columns[table] = append(cols, column)
	return nil
}

func (m *MemStore) InsertRows(ctx context.Context, table string, columns []string, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cols, ok := m.columns[table]
	if !ok {
		return fmt.Errorf("table %s: %w", table, domain.ErrSchemaMissing)
	}
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c.Name] = true
	}
	for _, name := range columns {
		if !known[name] {
			return fmt.Errorf("table %s has no column named %s", table, name)
		}
	}

	for _, r := range rows {
		stored := make(Row, len(columns))
		for _, name := range columns {
			stored[name] = r[name]
		}
		m.rows[table] = append(m.rows[table], stored)
	}
	return nil
}

func copyRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		c := make(Row, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}
