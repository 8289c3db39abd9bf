// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logger setup and client construction
// to reduce boilerplate across commands.
package appctx

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lherron/shamela/internal/config"
	"github.com/lherron/shamela/internal/db"
	"github.com/lherron/shamela/internal/library"
	"github.com/lherron/shamela/internal/logging"
	"github.com/lherron/shamela/internal/merge"
	"github.com/lherron/shamela/internal/shamela"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration with flag overrides applied
	Config *config.Config

	// Log writes to the command's stderr
	Log *logrus.Logger

	// Client is the release API client (nil if NeedsRemote is false)
	Client *shamela.Client

	// Library assembles releases fetched through Client (nil if NeedsRemote is false)
	Library *library.Library
}

// MergeOptions returns the merge options implied by the configuration.
func (a *App) MergeOptions() merge.Options {
	return merge.Options{Sentinel: a.Config.Sentinel, Logger: a.Log}
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsRemote indicates the command calls the release API. The API key
	// and endpoints must then be configured.
	NeedsRemote bool
}

// Local returns options for commands that only touch local files.
func Local() Options {
	return Options{}
}

// Remote returns options for commands that call the release API.
func Remote() Options {
	return Options{NeedsRemote: true}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return New(cmd, cfg, opts)
}

// New builds the App from an already loaded configuration.
func New(cmd *cobra.Command, cfg *config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}
	applyFlags(cmd, cfg)

	if err := db.ValidateDriver(cfg.Driver); err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	app.Log = log

	if opts.NeedsRemote {
		if err := cfg.RequireRemote(); err != nil {
			return nil, err
		}
		app.Client = shamela.NewClient(shamela.Options{
			APIKey:         cfg.APIKey,
			BooksEndpoint:  cfg.BooksEndpoint,
			MasterEndpoint: cfg.MasterEndpoint,
			Timeout:        cfg.HTTPTimeout(),
			Logger:         log,
		})
		app.Library = library.New(app.Client, library.Options{
			WorkDir:  cfg.WorkDir,
			Driver:   cfg.Driver,
			Sentinel: cfg.Sentinel,
			Logger:   log,
		})
	}

	return app, nil
}

// applyFlags copies explicitly set persistent flags over the configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"driver", &cfg.Driver},
		{"work-dir", &cfg.WorkDir},
		{"log-level", &cfg.LogLevel},
		{"log-format", &cfg.LogFormat},
		{"sentinel", &cfg.Sentinel},
	}
	for _, o := range overrides {
		if f := cmd.Flag(o.flag); f != nil {
			if v := f.Value.String(); v != "" {
				*o.dst = v
			}
		}
	}
}
