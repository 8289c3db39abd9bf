package library

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/lherron/shamela/internal/db"
	"github.com/lherron/shamela/internal/merge"
)

// writeDatabase builds a SQLite file next to out and renames it over out
// once fill succeeds. A failed fill leaves out untouched.
func writeDatabase(ctx context.Context, driver, out string, fill func(merge.Target) error) (err error) {
	tmp := out + ".tmp-" + uuid.NewString()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	target, err := db.Open(driver, tmp)
	if err != nil {
		return err
	}
	if err := fill(target); err != nil {
		target.Close()
		return err
	}
	if err := target.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := atomic.ReplaceFile(tmp, out); err != nil {
		return fmt.Errorf("failed to move database into place: %w", err)
	}
	return nil
}

// MergeFiles merges local base and patch databases into a new database at
// out. patchPath may be empty. tables limits the merge; empty means every
// base table. It returns the row count written per table.
func MergeFiles(ctx context.Context, driver, basePath, patchPath, out string, tables []string, opts merge.Options) (map[string]int, error) {
	base, patch, release, err := OpenPair(ctx, driver, basePath, patchPath)
	if err != nil {
		return nil, err
	}
	defer release()

	var counts map[string]int
	err = writeDatabase(ctx, driver, out, func(target merge.Target) error {
		var err error
		counts, err = merge.MergeAll(ctx, base, patch, target, tables, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// OpenPair opens local base and patch databases read-only. The returned
// patch is an untyped nil when patchPath is empty. release closes both.
func OpenPair(ctx context.Context, driver, basePath, patchPath string) (base, patch merge.Store, release func(), err error) {
	baseDB, err := db.OpenReadOnly(ctx, driver, basePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("base: %w", err)
	}
	if patchPath == "" {
		return baseDB, nil, func() { baseDB.Close() }, nil
	}

	patchDB, err := db.OpenReadOnly(ctx, driver, patchPath)
	if err != nil {
		baseDB.Close()
		return nil, nil, nil, fmt.Errorf("patch: %w", err)
	}
	return baseDB, patchDB, func() {
		patchDB.Close()
		baseDB.Close()
	}, nil
}
