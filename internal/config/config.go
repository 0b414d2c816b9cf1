// Package config handles application configuration and environment loading.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/semaflow/semaflow/internal/connreg"
)

// Config holds SemaFlow's runtime configuration, loaded once at startup
// from the environment and passed explicitly to the registry loader,
// CLI commands, and HTTP server — never read from a package-level global.
type Config struct {
	RegistryPath       string // directory containing tables/ and flows/
	RegistryReloadCron string // cron schedule for periodic reload; empty disables it
	DefaultRowLimit    int    // row cap applied when a QueryRequest sets no Limit
	ValidationMode     string // "strict" or "warn"
	LogLevel           string // debug, info, warn, error (default "info")
	LogFormat          string // "text" or "json" (default "text")
	HTTPAddr           string // HTTP listen address (default ":8080")

	// DataSources maps a semantic table's data_source name to the
	// physical connection connreg.Registry resolves it through, parsed
	// from SEMAFLOW_DATA_SOURCES as a JSON object of
	// {"name": {"driver": "duckdb"|"sqlite", "dsn": "..."}}.
	DataSources map[string]connreg.DataSourceConfig

	// Warnings collects non-fatal warnings generated during config
	// loading, logged by the caller once the logger is initialized.
	Warnings []string
}

// SlogLevel maps LogLevel to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the single *slog.Logger the CLI and HTTP server
// construct at startup and pass down explicitly, per SPEC_FULL.md §10.1.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	var handler slog.Handler
	if strings.EqualFold(c.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults and collecting a multi-error for missing required values.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		RegistryPath:       os.Getenv("SEMAFLOW_REGISTRY_PATH"),
		RegistryReloadCron: os.Getenv("SEMAFLOW_REGISTRY_RELOAD_CRON"),
		ValidationMode:     os.Getenv("SEMAFLOW_VALIDATION_MODE"),
		LogLevel:           os.Getenv("SEMAFLOW_LOG_LEVEL"),
		LogFormat:          os.Getenv("SEMAFLOW_LOG_FORMAT"),
		HTTPAddr:           os.Getenv("SEMAFLOW_HTTP_ADDR"),
	}

	if v := os.Getenv("SEMAFLOW_DEFAULT_ROW_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SEMAFLOW_DEFAULT_ROW_LIMIT: invalid integer %q: %w", v, err)
		}
		cfg.DefaultRowLimit = n
	}

	if v := os.Getenv("SEMAFLOW_DATA_SOURCES"); v != "" {
		var sources map[string]connreg.DataSourceConfig
		if err := json.Unmarshal([]byte(v), &sources); err != nil {
			return nil, fmt.Errorf("SEMAFLOW_DATA_SOURCES: invalid JSON: %w", err)
		}
		cfg.DataSources = sources
	}

	var missing []string
	if cfg.RegistryPath == "" {
		missing = append(missing, "SEMAFLOW_REGISTRY_PATH")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if cfg.ValidationMode == "" {
		cfg.ValidationMode = "strict"
	}
	if cfg.ValidationMode != "strict" && cfg.ValidationMode != "warn" {
		return nil, fmt.Errorf("SEMAFLOW_VALIDATION_MODE must be %q or %q, got %q", "strict", "warn", cfg.ValidationMode)
	}
	if cfg.DefaultRowLimit == 0 {
		cfg.DefaultRowLimit = 10000
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}
