package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	// Defaults carry no DSN; demo mode is the only mode valid out of the box.
	cfg.Mode = "demo"
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "banana"
	cfg.LogLevel = "loud"
	cfg.Redis.Addr = ""
	cfg.Engine.TickInterval.Duration = 0
	cfg.Pricing.FloorPrice = -1

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "unknown mode")
	assert.Contains(t, msg, "unknown log_level")
	assert.Contains(t, msg, "redis: addr")
	assert.Contains(t, msg, "tick_interval")
	assert.Contains(t, msg, "floor_price")
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "engine"

[engine]
tick_interval = "30s"

[cadence.day]
max_active = 5
min_interval = "2h"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("BABYLON_POSTGRES_DSN", "postgres://env-wins")
	t.Setenv("BABYLON_ENGINE_SAMPLE_ACTORS", "9")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "engine", cfg.Mode)
	assert.Equal(t, 30*time.Second, cfg.Engine.TickInterval.Duration)
	assert.Equal(t, 5, cfg.Cadence.Day.MaxActive)
	assert.Equal(t, 2*time.Hour, cfg.Cadence.Day.MinInterval.Duration)
	// Untouched sections keep defaults.
	assert.Equal(t, 2, cfg.Cadence.ThreeDay.MaxActive)
	// Env overrides file and defaults.
	assert.Equal(t, "postgres://env-wins", cfg.Postgres.DSN)
	assert.Equal(t, 9, cfg.Engine.SampleActors)

	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
