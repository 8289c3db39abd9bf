package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lherron/shamela/internal/bulk"
	"github.com/lherron/shamela/internal/cli/appctx"
	"github.com/lherron/shamela/internal/domain"
	"github.com/lherron/shamela/internal/render"
	"github.com/lherron/shamela/internal/shamela"
)

var booksCmd = &cobra.Command{
	Use:   "books <id>...",
	Short: "Download several books into a directory",
	Long: `Downloads and merges each book, writing <dir>/<id>.<ext>.

Exit codes: 0 all succeeded, 5 partial success, 1 all failed.

Examples:
  shamela books 1 2 3 --dir out
  shamela books 1 2 3 --dir out --jobs 4 --continue-on-error
  shamela books 1 2 3 --dir out --db      # one SQLite file per book
`,
	Args: cobra.MinimumNArgs(1),
	RunE: appctx.WithApp(appctx.Remote(), runBooks),
}

var (
	booksDir             string
	booksFormat          string
	booksJobs            int
	booksContinueOnError bool
	booksDB              bool
)

func init() {
	rootCmd.AddCommand(booksCmd)

	booksCmd.Flags().StringVar(&booksDir, "dir", ".", "Output directory")
	booksCmd.Flags().StringVar(&booksFormat, "format", "", "Output format: json, ndjson or yaml")
	booksCmd.Flags().IntVarP(&booksJobs, "jobs", "j", 1, "Parallel downloads (0 = number of CPUs)")
	booksCmd.Flags().BoolVar(&booksContinueOnError, "continue-on-error", false, "Keep going after a failed book")
	booksCmd.Flags().BoolVar(&booksDB, "db", false, "Write merged SQLite databases instead of rendered output")
}

func runBooks(app *appctx.App, cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		if _, err := domain.ParseBookID(arg); err != nil {
			return err
		}
	}

	format, err := outputFormat(booksFormat, app.Config.Output, "")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(booksDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	op := &bulk.Operation{
		Jobs:            booksJobs,
		ContinueOnError: booksContinueOnError,
		ShowProgress:    true,
		Progress:        cmd.ErrOrStderr(),
		Logger:          app.Log,
	}

	result := op.Execute(cmd.Context(), args, func(ctx context.Context, item string) error {
		id, _ := domain.ParseBookID(item)

		if booksDB {
			_, err := app.Library.DownloadBookDB(ctx, id, shamela.Versions{}, filepath.Join(booksDir, item+".db"))
			return err
		}

		data, _, err := app.Library.GetBook(ctx, id, shamela.Versions{})
		if err != nil {
			return err
		}
		return render.WriteFile(filepath.Join(booksDir, item+formatExt(format)), data, render.Options{Format: format})
	})

	result.PrintSummary(cmd.OutOrStdout())

	if code := result.ExitCode(); code != 0 {
		return exitError(code, fmt.Errorf("%d of %d books failed", result.Failed, result.TotalItems))
	}
	return nil
}
