package cli

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/lherron/shamela/internal/cli/appctx"
	"github.com/lherron/shamela/internal/library"
	"github.com/lherron/shamela/internal/merge"
)

var diffCmd = &cobra.Command{
	Use:   "diff --base <file> --patch <file> --table <name>",
	Short: "Show what a patch changes in one table",
	Long: `Prints a unified diff between the base rows of a table and the rows after
the patch is applied. Each row is one line of compact JSON in column order.

Examples:
  shamela diff --base 26592.db --patch 26592-patch.db --table page
  shamela diff --base 26592.db --patch p.db --table title --unified 0
`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.Local(), runDiff),
}

var (
	diffBase    string
	diffPatch   string
	diffTable   string
	diffUnified int
)

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().StringVar(&diffBase, "base", "", "Base database (required)")
	diffCmd.Flags().StringVar(&diffPatch, "patch", "", "Patch database (required)")
	diffCmd.Flags().StringVar(&diffTable, "table", "page", "Table to compare")
	diffCmd.Flags().IntVar(&diffUnified, "unified", 3, "Lines of unified context")
}

func runDiff(app *appctx.App, cmd *cobra.Command, args []string) error {
	if err := requireFlag("base", diffBase); err != nil {
		return err
	}
	if err := requireFlag("patch", diffPatch); err != nil {
		return err
	}

	base, patch, release, err := library.OpenPair(cmd.Context(), app.Config.Driver, diffBase, diffPatch)
	if err != nil {
		return err
	}
	defer release()

	baseTable, patchTable, err := merge.LoadPair(cmd.Context(), base, patch, diffTable)
	if err != nil {
		return fmt.Errorf("load %s: %w", diffTable, err)
	}
	merged := merge.Tables(baseTable, patchTable, app.MergeOptions())

	before, err := rowLines(baseTable.Rows, merged.Columns)
	if err != nil {
		return err
	}
	after, err := rowLines(merged.Rows, merged.Columns)
	if err != nil {
		return err
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        before,
		B:        after,
		FromFile: diffBase + ":" + diffTable,
		ToFile:   "merged:" + diffTable,
		Context:  diffUnified,
	})
	if err != nil {
		return fmt.Errorf("failed to compute diff: %w", err)
	}

	if text == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}

// rowLines renders each row as a JSON array of its cells in column order.
func rowLines(rows []merge.Row, columns []string) ([]string, error) {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]interface{}, len(columns))
		for i, c := range columns {
			v := row[c]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			cells[i] = v
		}
		data, err := json.Marshal(cells)
		if err != nil {
			return nil, fmt.Errorf("failed to encode row: %w", err)
		}
		lines = append(lines, strings.TrimSpace(string(data))+"\n")
	}
	return lines, nil
}
