package appctx

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lherron/shamela/internal/config"
)

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("driver", "", "SQLite driver")
	cmd.Flags().String("work-dir", "", "Work directory")
	cmd.Flags().String("log-level", "", "Log level")
	cmd.Flags().String("log-format", "", "Log format")
	cmd.Flags().String("sentinel", "", "Sentinel")
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}

func TestNew_Local(t *testing.T) {
	app, err := New(testCommand(), config.Defaults(), Local())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if app.Log == nil {
		t.Error("Log should not be nil")
	}
	if app.Client != nil || app.Library != nil {
		t.Error("Client and Library should be nil for local commands")
	}
	if app.MergeOptions().Sentinel != "" {
		t.Errorf("expected default sentinel, got %q", app.MergeOptions().Sentinel)
	}
}

func TestNew_FlagOverrides(t *testing.T) {
	cmd := testCommand()
	if err := cmd.Flags().Set("driver", "sqlite"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("log-level", "debug"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("sentinel", "@"); err != nil {
		t.Fatal(err)
	}

	app, err := New(cmd, config.Defaults(), Local())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if app.Config.Driver != "sqlite" {
		t.Errorf("expected driver override, got %q", app.Config.Driver)
	}
	if app.Log.Level != logrus.DebugLevel {
		t.Errorf("expected debug level, got %s", app.Log.Level)
	}
	if app.MergeOptions().Sentinel != "@" {
		t.Errorf("expected sentinel override, got %q", app.MergeOptions().Sentinel)
	}
}

func TestNew_InvalidDriver(t *testing.T) {
	cmd := testCommand()
	if err := cmd.Flags().Set("driver", "postgres"); err != nil {
		t.Fatal(err)
	}
	if _, err := New(cmd, config.Defaults(), Local()); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestNew_RemoteRequiresSettings(t *testing.T) {
	if _, err := New(testCommand(), config.Defaults(), Remote()); err == nil {
		t.Error("expected error when API settings are missing")
	}

	cfg := config.Defaults()
	cfg.APIKey = "k"
	cfg.BooksEndpoint = "https://api.example/books"
	cfg.MasterEndpoint = "https://api.example/master"
	cfg.WorkDir = t.TempDir()

	app, err := New(testCommand(), cfg, Remote())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if app.Client == nil || app.Library == nil {
		t.Error("Client and Library should be set for remote commands")
	}
}
