package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/FareWatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "360m", cfg.Scheduler.Interval)
	assert.Equal(t, "serpapi", cfg.Fetcher.Provider)
	assert.Equal(t, "USD", cfg.Fetcher.SerpAPI.Currency)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "30s", cfg.Server.ReadTimeout)
	assert.Equal(t, "150s", cfg.Server.WriteTimeout)
	assert.False(t, cfg.Alerts.Email.Enabled)
	assert.Equal(t, 587, cfg.Alerts.Email.Port)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 4, cfg.Search.Concurrency)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "farewatch", cfg.Metrics.Namespace)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "cli", cfg.Defaults.Platform)
	assert.Equal(t, "farewatch.db", filepath.Base(cfg.Storage.Path))
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
storage:
  path: /tmp/fares.db
scheduler:
  interval: 30m
fetcher:
  provider: static
  static:
    path: testdata/fares.yaml
cache:
  enabled: true
  ttl: 5m
alerts:
  discord:
    enabled: true
    webhook_url: https://discord.example/hook
  email:
    enabled: true
    host: smtp.example.com
    from: alerts@farewatch.example
    to: [deals@example.com, ops@example.com]
logging:
  level: debug
defaults:
  user: "1234"
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/fares.db", cfg.Storage.Path)
	assert.Equal(t, "30m", cfg.Scheduler.Interval)
	assert.Equal(t, "static", cfg.Fetcher.Provider)
	assert.Equal(t, "testdata/fares.yaml", cfg.Fetcher.Static.Path)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "5m", cfg.Cache.TTL)
	assert.True(t, cfg.Alerts.Discord.Enabled)
	assert.Equal(t, "FareWatch", cfg.Alerts.Discord.Username)
	assert.True(t, cfg.Alerts.Email.Enabled)
	assert.Equal(t, "smtp.example.com", cfg.Alerts.Email.Host)
	assert.Equal(t, 587, cfg.Alerts.Email.Port)
	assert.Equal(t, []string{"deals@example.com", "ops@example.com"}, cfg.Alerts.Email.To)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "1234", cfg.Defaults.User)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FW_LOGGING_LEVEL", "error")
	t.Setenv("FW_SERVER_LISTEN", ":7070")
	t.Setenv("FW_FETCHER_SERPAPI_API_KEY", "secret-key")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Server.Listen)
	assert.Equal(t, "secret-key", cfg.Fetcher.SerpAPI.APIKey)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	err := os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	assert.Error(t, err)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 6*time.Hour, config.Duration("360m", time.Minute))
	assert.Equal(t, time.Minute, config.Duration("", time.Minute))
	assert.Equal(t, time.Minute, config.Duration("soon", time.Minute))
	assert.Equal(t, time.Minute, config.Duration("-5s", time.Minute))
}
