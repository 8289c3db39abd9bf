// Package merge rebuilds current tables from a base snapshot and an optional
// patch overlay.
//
// Patch rows override base rows cell by cell. A patch cell holding the no-op
// sentinel (or NULL) defers to the base value. Rows are soft-deleted through
// the is_deleted column rather than removed. Patch tables may carry columns
// the base table lacks; the reconciled schema keeps them.
package merge

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// IDColumn keys rows across base and patch.
	IDColumn = "id"
	// DeletedColumn is the soft-delete flag.
	DeletedColumn = "is_deleted"
	// DefaultSentinel marks a patch cell as "use the base value".
	DefaultSentinel = "#"
)

// Row maps column names to scalar values: string, int64, float64, []byte or nil.
type Row map[string]interface{}

// Table is a named set of rows sharing an ordered column list.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Options configures a merge.
type Options struct {
	// Sentinel overrides DefaultSentinel.
	Sentinel string
	// Logger receives skipped-table notices. Nil discards them.
	Logger logrus.FieldLogger
}

func (o Options) sentinel() string {
	if o.Sentinel == "" {
		return DefaultSentinel
	}
	return o.Sentinel
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		return l
	}
	return o.Logger
}

// Reconcile returns the base columns in order followed by the patch columns
// the base lacks, in patch order.
func Reconcile(baseColumns, patchColumns []string) []string {
	out := make([]string, 0, len(baseColumns)+len(patchColumns))
	seen := make(map[string]bool, len(baseColumns)+len(patchColumns))
	for _, c := range baseColumns {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	for _, c := range patchColumns {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Merge applies patch rows on top of base rows, projecting every output row
// onto columns.
//
// Base rows come first in base order, then patch-only rows in patch order.
// A row whose patch counterpart is flagged deleted is dropped, as is a
// deleted patch-only row. A base row flagged deleted stays dropped unless its
// patch row sets the flag back to false. With no patch rows the result is
// the base rows that are not flagged deleted.
func Merge(base, patch []Row, columns []string, opts Options) []Row {
	sentinel := opts.sentinel()

	patchByID := make(map[string]Row, len(patch))
	for _, row := range patch {
		if key, ok := rowKey(row); ok {
			patchByID[key] = row
		}
	}

	out := make([]Row, 0, len(base)+len(patch))
	matched := make(map[string]bool, len(patch))

	for _, b := range base {
		key, ok := rowKey(b)
		var p Row
		if ok {
			p = patchByID[key]
		}
		if p != nil {
			matched[key] = true
		}
		if deleted(b, p, sentinel) {
			continue
		}
		out = append(out, mergeRow(b, p, columns, sentinel))
	}

	for _, p := range patch {
		key, ok := rowKey(p)
		if !ok || matched[key] {
			continue
		}
		matched[key] = true
		// Use the indexed row so duplicate ids resolve to the last one.
		p = patchByID[key]
		if deleted(nil, p, sentinel) {
			continue
		}
		out = append(out, mergeRow(nil, p, columns, sentinel))
	}

	return out
}

// Tables merges patch onto base. A nil patch yields the undeleted base rows.
func Tables(base, patch *Table, opts Options) *Table {
	if patch == nil {
		return &Table{
			Name:    base.Name,
			Columns: append([]string(nil), base.Columns...),
			Rows:    Merge(base.Rows, nil, base.Columns, opts),
		}
	}

	columns := Reconcile(base.Columns, patch.Columns)
	return &Table{
		Name:    base.Name,
		Columns: columns,
		Rows:    Merge(base.Rows, patch.Rows, columns, opts),
	}
}

// mergeRow projects one merged row. A matched row keeps the base id so the
// stored key type does not change when the patch spells the id differently.
func mergeRow(base, patch Row, columns []string, sentinel string) Row {
	out := make(Row, len(columns))
	for _, col := range columns {
		if col == IDColumn && base != nil {
			if v, ok := base[col]; ok && v != nil {
				out[col] = v
				continue
			}
		}
		if patch != nil {
			if v, ok := patch[col]; ok && v != nil && !isSentinel(v, sentinel) {
				out[col] = v
				continue
			}
		}
		if base != nil {
			if v, ok := base[col]; ok {
				out[col] = v
				continue
			}
		}
		out[col] = nil
	}
	return out
}

func isSentinel(v interface{}, sentinel string) bool {
	switch s := v.(type) {
	case string:
		return s == sentinel
	case []byte:
		return string(s) == sentinel
	}
	return false
}

// deleted resolves the soft-delete flag with the same precedence as any other
// cell: a real patch value wins, otherwise the base flag applies.
func deleted(base, patch Row, sentinel string) bool {
	if patch != nil {
		if v, ok := patch[DeletedColumn]; ok && v != nil && !isSentinel(v, sentinel) {
			return IsDeleted(patch)
		}
	}
	if base != nil {
		return IsDeleted(base)
	}
	return false
}

// IsDeleted reports whether a row carries a true soft-delete flag. A missing
// or NULL flag means not deleted.
func IsDeleted(row Row) bool {
	v, ok := row[DeletedColumn]
	if !ok || v == nil {
		return false
	}
	switch f := v.(type) {
	case bool:
		return f
	case int64:
		return f != 0
	case int:
		return f != 0
	case float64:
		return f != 0
	case string:
		return truthy(f)
	case []byte:
		return truthy(string(f))
	}
	return false
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes":
		return true
	}
	return false
}

// rowKey normalizes the id cell so that 7, "7" and []byte("7") match.
func rowKey(row Row) (string, bool) {
	v, ok := row[IDColumn]
	if !ok || v == nil {
		return "", false
	}
	switch id := v.(type) {
	case int64:
		return strconv.FormatInt(id, 10), true
	case int:
		return strconv.Itoa(id), true
	case float64:
		if id == float64(int64(id)) {
			return strconv.FormatInt(int64(id), 10), true
		}
		return strconv.FormatFloat(id, 'g', -1, 64), true
	case string:
		return strings.TrimSpace(id), true
	case []byte:
		return strings.TrimSpace(string(id)), true
	}
	return fmt.Sprint(v), true
}
