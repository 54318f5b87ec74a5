package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)

	assert.Equal(t, "https://instagram-scraper-api2.p.rapidapi.com", cfg.RapidAPI.BaseURL)
	assert.Equal(t, "instagram-scraper-api2.p.rapidapi.com", cfg.RapidAPI.Host)
	assert.Empty(t, cfg.RapidAPI.Key)

	assert.Equal(t, 12, cfg.Grid.Capacity)
	assert.Equal(t, 3, cfg.Grid.MaxPerUpload)
	assert.Equal(t, 3, cfg.Grid.QuotaLimit)
	assert.Equal(t, 5*time.Second, cfg.Grid.DeletionDelay)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 365*24*time.Hour, cfg.Server.ImageMaxAge)

	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.True(t, cfg.Prefetch.Enabled)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RAPIDAPI_KEY", "env-key")
	t.Setenv("RAPIDAPI_HOST", "env-host.p.rapidapi.com")
	t.Setenv("GRIDPREVIEW_PORT", "8080")
	t.Setenv("GRIDPREVIEW_GRID_CAPACITY", "9")
	t.Setenv("GRIDPREVIEW_QUOTA_LIMIT", "5")
	t.Setenv("GRIDPREVIEW_CACHE_BACKEND", "REDIS")
	t.Setenv("GRIDPREVIEW_REDIS_ADDR", "redis:6379")
	t.Setenv("GRIDPREVIEW_REQUESTS_PER_MINUTE", "30")
	t.Setenv("GRIDPREVIEW_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env-key", cfg.RapidAPI.Key)
	assert.Equal(t, "env-host.p.rapidapi.com", cfg.RapidAPI.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 9, cfg.Grid.Capacity)
	assert.Equal(t, 5, cfg.Grid.QuotaLimit)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvPrefixedKeyWins(t *testing.T) {
	t.Setenv("RAPIDAPI_KEY", "plain")
	t.Setenv("GRIDPREVIEW_RAPIDAPI_KEY", "prefixed")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, "prefixed", cfg.RapidAPI.Key)
}

func TestLoadFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("GRIDPREVIEW_GRID_CAPACITY", "twelve")
	t.Setenv("GRIDPREVIEW_QUOTA_LIMIT", "-1")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, 12, cfg.Grid.Capacity)
	assert.Equal(t, 3, cfg.Grid.QuotaLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{
			name:      "defaults are valid",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "missing credentials are allowed",
			mutate:    func(c *Config) { c.RapidAPI.Key = ""; c.RapidAPI.Host = "" },
			wantError: false,
		},
		{
			name:      "zero capacity",
			mutate:    func(c *Config) { c.Grid.Capacity = 0 },
			wantError: true,
		},
		{
			name:      "zero quota limit",
			mutate:    func(c *Config) { c.Grid.QuotaLimit = 0 },
			wantError: true,
		},
		{
			name:      "unknown cache backend",
			mutate:    func(c *Config) { c.Cache.Backend = "memcached" },
			wantError: true,
		},
		{
			name:      "redis backend without address",
			mutate:    func(c *Config) { c.Cache.Backend = "redis"; c.Cache.RedisAddr = "" },
			wantError: true,
		},
		{
			name:      "too many prefetch workers",
			mutate:    func(c *Config) { c.Prefetch.Workers = 11 },
			wantError: true,
		},
		{
			name:      "sliding window strategy",
			mutate:    func(c *Config) { c.RateLimit.Strategy = "sliding_window" },
			wantError: false,
		},
		{
			name:      "unknown rate limit strategy",
			mutate:    func(c *Config) { c.RateLimit.Strategy = "leaky_bucket" },
			wantError: true,
		},
		{
			name:      "unknown prefetch rate limit strategy",
			mutate:    func(c *Config) { c.Prefetch.RateLimit.Strategy = "leaky_bucket" },
			wantError: true,
		},
		{
			name:      "unlimited prefetch",
			mutate:    func(c *Config) { c.Prefetch.RateLimit.RequestsPerMinute = 0 },
			wantError: false,
		},
		{
			name:      "linear backoff",
			mutate:    func(c *Config) { c.Retry.Backoff = "linear" },
			wantError: false,
		},
		{
			name:      "unknown retry backoff",
			mutate:    func(c *Config) { c.Retry.Backoff = "fibonacci" },
			wantError: true,
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantError: true,
		},
		{
			name:      "invalid log format",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gridpreview.yaml")

	content := `
grid:
  capacity: 9
  quota_limit: 6
cache:
  backend: none
server:
  port: "9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 9, cfg.Grid.Capacity)
	assert.Equal(t, 6, cfg.Grid.QuotaLimit)
	assert.Equal(t, "none", cfg.Cache.Backend)
	assert.Equal(t, "9090", cfg.Server.Port)
	// untouched values keep their defaults
	assert.Equal(t, 3, cfg.Grid.MaxPerUpload)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile("/nonexistent/gridpreview.yaml"))

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid: [unclosed"), 0644))
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Grid.Capacity = 9
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Config
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, 9, loaded.Grid.Capacity)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"port":       "4000",
		"capacity":   9,
		"cache":      "redis",
		"redis-addr": "cache:6379",
		"prefetch":   false,
		"log-level":  "warn",
	})

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, 9, cfg.Grid.Capacity)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Cache.RedisAddr)
	assert.False(t, cfg.Prefetch.Enabled)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gridpreview.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"5000\"\ngrid:\n  capacity: 9\n"), 0644))

	t.Setenv("GRIDPREVIEW_PORT", "6000")

	cfg, err := Load(path, map[string]interface{}{"capacity": 12})
	require.NoError(t, err)

	assert.Equal(t, "6000", cfg.Server.Port, "env overrides file")
	assert.Equal(t, 12, cfg.Grid.Capacity, "flags override file")
}
