package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	cfg := Load()

	assert.Equal(t, "gpt-5-mini", cfg.LLM.Model)
	assert.Equal(t, 0.7, cfg.Notifications.Threshold)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.Window)
	assert.Equal(t, time.Second, cfg.Scraping.RateLimit)
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.ScrapeCron)
	assert.Equal(t, "0 2 * * *", cfg.Scheduler.PurgeCron)
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
	assert.Contains(t, cfg.LLM.Pricing, "gpt-5-nano")
	require.NoError(t, cfg.Validate())
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
logging:
  level: debug
scheduler:
  timezone: Europe/Berlin
scraping:
  recencyWindow: 12h
  sites:
    - name: reuters-markets
      scanner: reuters
      options:
        section: us
notifications:
  enabled: false
  threshold: 0.8
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(recipientsEnv, "a@example.com, ,b@example.com")
	t.Setenv(thresholdEnv, "0.9")
	t.Setenv(cacheTTLEnv, "3600")
	t.Setenv(llmModelEnv, "gpt-5-nano")

	cfg := Load()

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Equal(t, 12*time.Hour, cfg.Scraping.RecencyWindow)
	require.Len(t, cfg.Scraping.Sites, 1)
	assert.Equal(t, "us", cfg.Scraping.Sites[0].Options["section"])
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, 0.9, cfg.Notifications.Threshold)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notifications.Recipients)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "gpt-5-nano", cfg.LLM.Model)
	// untouched sections keep their defaults
	assert.Equal(t, 4, cfg.Worker.Concurrency)
}

func TestLoadUnknownTimezoneFallsBack(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(timezoneEnv, "Mars/Olympus")

	cfg := Load()
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
}

func TestEmptyRecipientsEnv(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(recipientsEnv, "")

	cfg := Load()
	assert.Empty(t, cfg.Notifications.Recipients)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Notifications.Threshold = 1.5
	cfg.Worker.Concurrency = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
	assert.Contains(t, err.Error(), "concurrency")
}
