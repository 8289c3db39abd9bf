package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	APIKey             string `yaml:"api_key"`
	BooksEndpoint      string `yaml:"books_endpoint"`
	MasterEndpoint     string `yaml:"master_endpoint"`
	WorkDir            string `yaml:"work_dir"`
	Driver             string `yaml:"driver"`
	Sentinel           string `yaml:"sentinel"`
	LogLevel           string `yaml:"log_level"`
	LogFormat          string `yaml:"log_format"`
	Output             string `yaml:"output"`
	HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/shamela/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := Defaults()

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// YAML config is optional
	if err := loadYAMLConfig(cfg, userConfigPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}

	return cfg, nil
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		Driver:             "sqlite3",
		LogLevel:           "info",
		LogFormat:          "text",
		Output:             "json",
		HTTPTimeoutSeconds: 60,
	}
}

func applyEnv(cfg *Config) error {
	if apiKey := getEnvOrFile("SHAMELA_API_KEY", "SHAMELA_API_KEY_FILE"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	if endpoint := os.Getenv("SHAMELA_API_BOOKS_ENDPOINT"); endpoint != "" {
		cfg.BooksEndpoint = endpoint
	}
	if endpoint := os.Getenv("SHAMELA_API_MASTER_PATCH_ENDPOINT"); endpoint != "" {
		cfg.MasterEndpoint = endpoint
	}
	if workDir := os.Getenv("SHAMELA_WORK_DIR"); workDir != "" {
		cfg.WorkDir = workDir
	}
	if driver := os.Getenv("SHAMELA_SQLITE_DRIVER"); driver != "" {
		cfg.Driver = driver
	}
	if sentinel := os.Getenv("SHAMELA_SENTINEL"); sentinel != "" {
		cfg.Sentinel = sentinel
	}
	if logLevel := os.Getenv("SHAMELA_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat := os.Getenv("SHAMELA_LOG_FORMAT"); logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if output := os.Getenv("SHAMELA_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if timeout := os.Getenv("SHAMELA_HTTP_TIMEOUT"); timeout != "" {
		n, err := strconv.Atoi(timeout)
		if err != nil || n <= 0 {
			return fmt.Errorf("SHAMELA_HTTP_TIMEOUT must be a positive number of seconds, got %q", timeout)
		}
		cfg.HTTPTimeoutSeconds = n
	}
	return nil
}

// HTTPTimeout returns the request timeout as a duration
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// RequireRemote reports the settings missing for operations that call the
// release API.
func (c *Config) RequireRemote() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "SHAMELA_API_KEY")
	}
	if c.BooksEndpoint == "" {
		missing = append(missing, "SHAMELA_API_BOOKS_ENDPOINT")
	}
	if c.MasterEndpoint == "" {
		missing = append(missing, "SHAMELA_API_MASTER_PATCH_ENDPOINT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func userConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "shamela", "config.yaml")
}

// loadYAMLConfig loads configuration from a YAML file
func loadYAMLConfig(cfg *Config, configPath string) error {
	if configPath == "" {
		return os.ErrNotExist
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	return nil
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
