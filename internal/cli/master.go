package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/shamela/internal/cli/appctx"
	"github.com/lherron/shamela/internal/render"
)

var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Download the catalog of authors, books and categories",
	Long: `Downloads the catalog release and prints its live authors, books and
categories. Soft-deleted rows are dropped.

Examples:
  shamela master
  shamela master --version 12 -o master.yaml
  shamela master --db -o master.db
`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.Remote(), runMaster),
}

var (
	masterVersion int
	masterOutput  string
	masterFormat  string
	masterDB      bool
)

func init() {
	rootCmd.AddCommand(masterCmd)

	masterCmd.Flags().IntVar(&masterVersion, "version", 0, "Catalog version to request (0 = latest)")
	masterCmd.Flags().StringVarP(&masterOutput, "output", "o", "", "Write to file instead of stdout")
	masterCmd.Flags().StringVar(&masterFormat, "format", "", "Output format: json, ndjson or yaml")
	masterCmd.Flags().BoolVar(&masterDB, "db", false, "Write the catalog tables as a SQLite database (requires -o)")
}

func runMaster(app *appctx.App, cmd *cobra.Command, args []string) error {
	if masterDB {
		if err := requireFlag("output", masterOutput); err != nil {
			return err
		}
		meta, err := app.Library.DownloadMasterDB(cmd.Context(), masterVersion, masterOutput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (version %d)\n", masterOutput, meta.Version)
		return nil
	}

	format, err := outputFormat(masterFormat, app.Config.Output, masterOutput)
	if err != nil {
		return err
	}

	data, _, err := app.Library.GetMaster(cmd.Context(), masterVersion)
	if err != nil {
		return err
	}

	opts := render.Options{Format: format}
	if masterOutput != "" {
		return render.WriteFile(masterOutput, data, opts)
	}
	return render.NewRenderer(cmd.OutOrStdout(), opts).Render(data)
}
