package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load("")
	assert.NilError(t, err)
	assert.Equal(t, cfg.Server.Port, 5050)
	assert.Equal(t, cfg.Storage.Backend, BackendFile)
	assert.Equal(t, cfg.Storage.FilePath, "data/restaurants.json")
	assert.Equal(t, cfg.Redis.Enabled, false)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte(`
server:
  port: 7000
  requestTimeout: 3s
storage:
  backend: sqlite
  sqlitePath: /tmp/catalog.db
redis:
  enabled: true
  cacheTTL: 1m
`)
	assert.NilError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("PORT", "")
	t.Setenv("RC_LOGGING_LEVEL", "debug")
	t.Setenv("RC_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Server.Port, 7000)
	assert.Equal(t, cfg.Server.RequestTimeout, 3*time.Second)
	assert.Equal(t, cfg.Storage.Backend, BackendSQLite)
	assert.Equal(t, cfg.Redis.CacheTTL, time.Minute)
	assert.Equal(t, cfg.Logging.Level, "debug")
	assert.DeepEqual(t, cfg.CORS.AllowedOrigins, []string{"http://localhost:3000", "http://localhost:5173"})
	// untouched sections keep their defaults
	assert.Equal(t, cfg.Postgres.Port, 5432)
}

func TestPortEnvOverride(t *testing.T) {
	t.Setenv("PORT", "8088")
	cfg, err := Load("")
	assert.NilError(t, err)
	assert.Equal(t, cfg.Server.Port, 8088)
}

func TestValidate(t *testing.T) {
	t.Setenv("RC_STORAGE_BACKEND", "mongo")
	_, err := Load("")
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestMetricsEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RC_METRICS_PORT", "9191")
	t.Setenv("RC_METRICS_PPROF", "true")
	t.Setenv("RC_METRICS_ENABLED", "not-a-bool")

	cfg, err := Load("")
	assert.NilError(t, err)
	assert.Equal(t, cfg.Metrics.Port, 9191)
	assert.Equal(t, cfg.Metrics.Pprof, true)
	assert.Equal(t, cfg.Metrics.Enabled, true)
}
