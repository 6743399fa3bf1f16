package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/prices")

	cfg := Load()

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.False(t, cfg.Server.RequireAPIKey())
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 10*time.Second, cfg.Browser.BodyTimeout)
	assert.Equal(t, 10*time.Second, cfg.Browser.NodeTimeout)
	assert.Equal(t, "deepseek-r1:1.5b", cfg.LLM.Model)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 4096, cfg.LLM.ContextWindow)
	assert.Equal(t, "0 0 */12 * * *", cfg.Scheduler.Schedule)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/prices")
	t.Setenv("PORT", "9090")
	t.Setenv("API_KEYS", "alpha, ,beta")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	t.Setenv("LLM_ENABLED", "false")
	t.Setenv("BROWSER_NODE_TIMEOUT", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Server.APIKeys)
	assert.True(t, cfg.Server.RequireAPIKey())
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.False(t, cfg.LLM.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Browser.NodeTimeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/prices")

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing database", func(c *Config) { c.Database.URL = "" }, "DATABASE_URL"},
		{"zero fetch timeout", func(c *Config) { c.Fetch.Timeout = 0 }, "FETCH_TIMEOUT"},
		{"zero navigation timeout", func(c *Config) { c.Browser.NavigationTimeout = 0 }, "BROWSER_NAVIGATION_TIMEOUT"},
		{"negative body timeout", func(c *Config) { c.Browser.BodyTimeout = -time.Second }, "BROWSER_BODY_TIMEOUT"},
		{"negative temperature", func(c *Config) { c.LLM.Temperature = -0.1 }, "LLM_TEMPERATURE"},
		{"zero rate limit", func(c *Config) { c.Server.RateLimitPerSecond = 0 }, "RATE_LIMIT_PER_SECOND"},
		{"empty schedule", func(c *Config) { c.Scheduler.Schedule = "" }, "REFRESH_SCHEDULE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
