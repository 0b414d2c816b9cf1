package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semaflow/semaflow/internal/connreg"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("SEMAFLOW_REGISTRY_PATH", "/etc/semaflow/registry")
	t.Setenv("SEMAFLOW_DEFAULT_ROW_LIMIT", "")
	t.Setenv("SEMAFLOW_VALIDATION_MODE", "")
	t.Setenv("SEMAFLOW_LOG_LEVEL", "")
	t.Setenv("SEMAFLOW_LOG_FORMAT", "")
	t.Setenv("SEMAFLOW_HTTP_ADDR", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/etc/semaflow/registry", cfg.RegistryPath)
	assert.Equal(t, "strict", cfg.ValidationMode)
	assert.Equal(t, 10000, cfg.DefaultRowLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadFromEnv_RegistryReloadCronDefaultsEmpty(t *testing.T) {
	t.Setenv("SEMAFLOW_REGISTRY_PATH", "/etc/semaflow/registry")
	t.Setenv("SEMAFLOW_REGISTRY_RELOAD_CRON", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.RegistryReloadCron)
}

func TestLoadFromEnv_RegistryReloadCronSet(t *testing.T) {
	t.Setenv("SEMAFLOW_REGISTRY_PATH", "/etc/semaflow/registry")
	t.Setenv("SEMAFLOW_REGISTRY_RELOAD_CRON", "*/5 * * * *")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", cfg.RegistryReloadCron)
}

func TestLoadFromEnv_DataSourcesParsed(t *testing.T) {
	t.Setenv("SEMAFLOW_REGISTRY_PATH", "/etc/semaflow/registry")
	t.Setenv("SEMAFLOW_DATA_SOURCES", `{"warehouse":{"driver":"duckdb","dsn":"warehouse.db"}}`)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, connreg.DataSourceConfig{Driver: connreg.DriverDuckDB, DSN: "warehouse.db"}, cfg.DataSources["warehouse"])
}

func TestLoadFromEnv_DataSourcesInvalidJSON(t *testing.T) {
	t.Setenv("SEMAFLOW_REGISTRY_PATH", "/etc/semaflow/registry")
	t.Setenv("SEMAFLOW_DATA_SOURCES", `not json`)

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEMAFLOW_DATA_SOURCES")
}

func TestLoadFromEnv_MissingRegistryPath(t *testing.T) {
	t.Setenv("SEMAFLOW_REGISTRY_PATH", "")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEMAFLOW_REGISTRY_PATH")
}

func TestLoadFromEnv_InvalidRowLimit(t *testing.T) {
	t.Setenv("SEMAFLOW_REGISTRY_PATH", "/etc/semaflow/registry")
	t.Setenv("SEMAFLOW_DEFAULT_ROW_LIMIT", "not-a-number")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEMAFLOW_DEFAULT_ROW_LIMIT")
}

func TestLoadFromEnv_InvalidValidationMode(t *testing.T) {
	t.Setenv("SEMAFLOW_REGISTRY_PATH", "/etc/semaflow/registry")
	t.Setenv("SEMAFLOW_VALIDATION_MODE", "lenient")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEMAFLOW_VALIDATION_MODE")
}

func TestLoadFromEnv_CustomValues(t *testing.T) {
	t.Setenv("SEMAFLOW_REGISTRY_PATH", "/data/registry")
	t.Setenv("SEMAFLOW_DEFAULT_ROW_LIMIT", "500")
	t.Setenv("SEMAFLOW_VALIDATION_MODE", "warn")
	t.Setenv("SEMAFLOW_LOG_LEVEL", "debug")
	t.Setenv("SEMAFLOW_LOG_FORMAT", "json")
	t.Setenv("SEMAFLOW_HTTP_ADDR", ":9090")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.DefaultRowLimit)
	assert.Equal(t, "warn", cfg.ValidationMode)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for level, want := range cases {
		c := &Config{LogLevel: level}
		assert.Equal(t, want, c.SlogLevel(), "level %q", level)
	}
}

func TestNewLogger(t *testing.T) {
	c := &Config{LogLevel: "info", LogFormat: "json"}
	logger := c.NewLogger()
	require.NotNil(t, logger)
}
