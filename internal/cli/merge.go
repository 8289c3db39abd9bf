package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lherron/shamela/internal/cli/appctx"
	"github.com/lherron/shamela/internal/library"
	"github.com/lherron/shamela/internal/render"
)

var mergeCmd = &cobra.Command{
	Use:   "merge --base <file> [--patch <file>] --out <file>",
	Short: "Merge local base and patch databases into a new database",
	Long: `Applies a patch database on top of a base database and writes the result
as a new SQLite file. Patch cells equal to the sentinel ("#") or NULL keep the
base value; rows flagged is_deleted are dropped; patch-only columns are added.

Examples:
  shamela merge --base 26592.db --patch 26592-patch.db --out merged.db
  shamela merge --base 26592.db --patch p.db --out merged.db --table page --table title
`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.Local(), runMerge),
}

var (
	mergeBase   string
	mergePatch  string
	mergeOut    string
	mergeTables []string
)

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().StringVar(&mergeBase, "base", "", "Base database (required)")
	mergeCmd.Flags().StringVar(&mergePatch, "patch", "", "Patch database")
	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "Output database (required)")
	mergeCmd.Flags().StringSliceVar(&mergeTables, "table", nil, "Table to merge (repeatable; default all base tables)")
}

func runMerge(app *appctx.App, cmd *cobra.Command, args []string) error {
	if err := requireFlag("base", mergeBase); err != nil {
		return err
	}
	if err := requireFlag("out", mergeOut); err != nil {
		return err
	}

	counts, err := library.MergeFiles(cmd.Context(), app.Config.Driver, mergeBase, mergePatch, mergeOut, mergeTables, app.MergeOptions())
	if err != nil {
		return err
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, strconv.Itoa(counts[name])})
	}
	return render.NewRenderer(cmd.OutOrStdout(), render.Options{}).RenderTable([]string{"TABLE", "ROWS"}, rows)
}
