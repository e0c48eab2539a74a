package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbkeep/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "localhost", cfg.Hostname)
	assert.Equal(t, "sample", cfg.Database)
	assert.Equal(t, filepath.Join(".", "db"), cfg.Location)
	assert.Equal(t, ".", cfg.SettingsDir)
	assert.NotEmpty(t, cfg.KeyFile)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DB_DATABASE", "warehouse")
	t.Setenv("DB_HOSTNAME", "db01.internal")
	t.Setenv("DB_ENVIRONMENT", "PROD")
	t.Setenv("DB_SETTINGS_DIR", "/tmp/settings")
	t.Setenv("DB_KEY_FILE", "/tmp/key.json")
	t.Setenv("DB_LOG_LEVEL", "debug")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "warehouse", cfg.Database)
	assert.Equal(t, "db01.internal", cfg.Hostname)
	// Triple components are normalized to lower case.
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "/tmp/settings", cfg.SettingsDir)
	assert.Equal(t, "/tmp/key.json", cfg.KeyFile)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestCSVDir(t *testing.T) {
	t.Setenv("DB_LOCATION", "/data/csv")
	t.Setenv("DB_ENVIRONMENT", "test")
	t.Setenv("DB_DATABASE", "orders")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/csv", "test", "orders"), cfg.CSVDir())
}
