package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means a required base source could not be opened.
	// It aborts the whole assembly.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSchemaMissing means a table has no definition in its base source.
	// Only that table is skipped.
	ErrSchemaMissing = errors.New("schema missing")

	// ErrMalformedCell means a cell could not be parsed into its expected shape.
	ErrMalformedCell = errors.New("malformed cell")
)

// MalformedCellError locates a cell that failed to parse.
type MalformedCellError struct {
	Table  string
	Column string
	ID     interface{}
	Value  interface{}
	Err    error
}

func (e *MalformedCellError) Error() string {
	msg := fmt.Sprintf("%s.%s (id %v): malformed value %q", e.Table, e.Column, e.ID, fmt.Sprint(e.Value))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets errors.Is match both ErrMalformedCell and the parse error.
func (e *MalformedCellError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedCell}
	}
	return []error{ErrMalformedCell, e.Err}
}
