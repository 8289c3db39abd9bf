package bulk

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Operation represents a bulk operation configuration
type Operation struct {
	Jobs            int
	ContinueOnError bool
	Ordered         bool
	ShowProgress    bool
	// Progress receives the progress line. Defaults to os.Stderr and is only
	// drawn when it is a terminal.
	Progress io.Writer
	Logger   logrus.FieldLogger
}

// Result represents the result of a bulk operation
type Result struct {
	TotalItems int
	Succeeded  int
	Failed     int
	Skipped    int
	Errors     []ItemError
}

// ItemError represents an error for a specific item
type ItemError struct {
	Item  string
	Error error
}

// ItemFunc is the function to execute for each item
type ItemFunc func(ctx context.Context, item string) error

// Execute runs fn for each item. Items not started when ctx is cancelled,
// or after a failure without ContinueOnError, are counted as skipped.
func (op *Operation) Execute(ctx context.Context, items []string, fn ItemFunc) *Result {
	if len(items) == 0 {
		return &Result{}
	}

	// Auto-detect CPU count if jobs == 0
	jobs := op.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(items) {
		jobs = len(items)
	}

	// Force sequential if ordered or jobs == 1
	if op.Ordered || jobs == 1 {
		return op.executeSequential(ctx, items, fn)
	}

	return op.executeParallel(ctx, items, fn, jobs)
}

func (op *Operation) logger() logrus.FieldLogger {
	if op.Logger != nil {
		return op.Logger
	}
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func (op *Operation) progressWriter() io.Writer {
	if !op.ShowProgress {
		return nil
	}
	w := op.Progress
	if w == nil {
		w = os.Stderr
	}
	if f, ok := w.(*os.File); ok && !isatty(f) {
		return nil
	}
	return w
}

func (op *Operation) report(item string, err error) {
	log := op.logger().WithField("item", item)
	if err != nil {
		log.WithError(err).Error("failed")
		return
	}
	log.Info("done")
}

// executeSequential processes items one by one
func (op *Operation) executeSequential(ctx context.Context, items []string, fn ItemFunc) *Result {
	result := &Result{
		TotalItems: len(items),
	}
	progress := op.progressWriter()

	for i, item := range items {
		if ctx.Err() != nil {
			result.Skipped = len(items) - i
			break
		}
		if progress != nil {
			fmt.Fprintf(progress, "\rProcessing %d/%d...", i+1, len(items))
		}

		err := fn(ctx, item)
		op.report(item, err)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{
				Item:  item,
				Error: err,
			})

			if !op.ContinueOnError {
				result.Skipped = len(items) - i - 1
				break
			}
		} else {
			result.Succeeded++
		}
	}

	// Clear progress line
	if progress != nil {
		fmt.Fprintf(progress, "\r\033[K")
	}

	return result
}

// executeParallel processes items in parallel using a worker pool
func (op *Operation) executeParallel(ctx context.Context, items []string, fn ItemFunc, workers int) *Result {
	result := &Result{
		TotalItems: len(items),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Create work queue
	workQueue := make(chan string, len(items))
	for _, item := range items {
		workQueue <- item
	}
	close(workQueue)

	var (
		completed int32
		succeeded int32
		failed    int32
		errorsMux sync.Mutex
	)

	// Progress reporter
	progress := op.progressWriter()
	var progressMu sync.Mutex
	drawProgress := func() {
		if progress == nil {
			return
		}
		c := atomic.LoadInt32(&completed)
		pct := int(float64(c) / float64(len(items)) * 100)
		progressMu.Lock()
		fmt.Fprintf(progress, "\rProcessing with %d workers... [%s] %d/%d (✓ %d ✗ %d)",
			workers, progressBar(pct, 20), c, len(items),
			atomic.LoadInt32(&succeeded), atomic.LoadInt32(&failed))
		progressMu.Unlock()
	}

	// Worker pool
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for item := range workQueue {
				if ctx.Err() != nil {
					return
				}

				err := fn(ctx, item)
				op.report(item, err)

				if err != nil {
					atomic.AddInt32(&failed, 1)
					errorsMux.Lock()
					result.Errors = append(result.Errors, ItemError{
						Item:  item,
						Error: err,
					})
					errorsMux.Unlock()

					if !op.ContinueOnError {
						cancel()
					}
				} else {
					atomic.AddInt32(&succeeded, 1)
				}
				atomic.AddInt32(&completed, 1)
				drawProgress()
			}
		}()
	}

	wg.Wait()

	if progress != nil {
		fmt.Fprintf(progress, "\r\033[K") // Clear line
	}

	result.Succeeded = int(succeeded)
	result.Failed = int(failed)
	result.Skipped = result.TotalItems - int(completed)

	return result
}

// ExitCode returns the appropriate exit code for the result
func (r *Result) ExitCode() int {
	if r.Failed == 0 && r.Skipped == 0 {
		return 0 // All succeeded
	}
	if r.Succeeded > 0 {
		return 5 // Partial success
	}
	return 1 // All failed
}

// PrintSummary prints a human-readable summary of the result
func (r *Result) PrintSummary(w io.Writer) {
	switch {
	case r.Failed == 0 && r.Skipped == 0:
		fmt.Fprintf(w, "\n✓ All %d operations succeeded\n", r.TotalItems)
	case r.Succeeded == 0:
		fmt.Fprintf(w, "\n✗ All %d operations failed\n", r.TotalItems)
	default:
		fmt.Fprintf(w, "\n⚠ Partial success: %d succeeded, %d failed, %d skipped (out of %d)\n",
			r.Succeeded, r.Failed, r.Skipped, r.TotalItems)
	}

	errs := r.Errors
	if len(errs) > 10 {
		fmt.Fprintf(w, "\nShowing first 10 errors (of %d):\n", len(errs))
		errs = errs[:10]
	} else if len(errs) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
	}
	for _, e := range errs {
		fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
	}
}

// progressBar creates a simple ASCII progress bar
func progressBar(percent, width int) string {
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// isatty checks if the file descriptor is a terminal
func isatty(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
