package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shamela",
	Short: "Download, merge and decode Shamela library releases",
	Long: `shamela fetches book and catalog releases from the Shamela release API,
applies patch releases on top of their base databases and emits the merged
pages, titles, authors, books and categories as JSON, NDJSON or YAML.

It also merges local SQLite releases offline and decodes legacy-encoded
byte strings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Cancelling ctx aborts downloads and merges
// in flight.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("driver", "", "SQLite driver: sqlite3 (cgo) or sqlite (pure Go) (overrides SHAMELA_SQLITE_DRIVER)")
	rootCmd.PersistentFlags().String("work-dir", "", "Directory for scratch downloads (overrides SHAMELA_WORK_DIR)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides SHAMELA_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (overrides SHAMELA_LOG_FORMAT)")
	rootCmd.PersistentFlags().String("sentinel", "", "Patch cell value that keeps the base value (default \"#\")")
}
