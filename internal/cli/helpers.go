package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lherron/shamela/internal/render"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// outputFormat resolves --format against the configured default. An output
// path with a .yaml/.yml or .ndjson extension picks the format when neither
// is set explicitly.
func outputFormat(flag, configured, path string) (render.Format, error) {
	if flag != "" {
		return render.ParseFormat(flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return render.FormatYAML, nil
	case ".ndjson", ".jsonl":
		return render.FormatNDJSON, nil
	case ".json":
		return render.FormatJSON, nil
	}
	return render.ParseFormat(configured)
}

// formatExt returns the file extension used for a format in bulk output.
func formatExt(f render.Format) string {
	switch f {
	case render.FormatYAML:
		return ".yaml"
	case render.FormatNDJSON:
		return ".ndjson"
	default:
		return ".json"
	}
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
