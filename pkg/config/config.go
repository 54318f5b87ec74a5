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

// Config holds all configuration options for the grid preview service
type Config struct {
	// Third-party scraping API
	RapidAPI RapidAPIConfig `yaml:"rapidapi" json:"rapidapi"`

	// HTTP surface
	Server ServerConfig `yaml:"server" json:"server"`

	// Grid engine limits
	Grid GridConfig `yaml:"grid" json:"grid"`

	// Image byte cache behind the proxy
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Cache warm-up after a posts fetch
	Prefetch PrefetchConfig `yaml:"prefetch" json:"prefetch"`

	// Local upload handling
	Upload UploadConfig `yaml:"upload" json:"upload"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry configuration
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// RapidAPIConfig holds the scraping API endpoint and credentials.
// Key and Host are secrets; they are usually supplied by the environment or the
// credential store rather than the YAML file.
type RapidAPIConfig struct {
	Key             string        `yaml:"key" json:"key"`
	Host            string        `yaml:"host" json:"host"`
	BaseURL         string        `yaml:"base_url" json:"base_url"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	BreakerFailures uint32        `yaml:"breaker_failures" json:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout" json:"breaker_timeout"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host              string        `yaml:"host" json:"host"`
	Port              string        `yaml:"port" json:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout" json:"read_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" json:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	ImageMaxAge       time.Duration `yaml:"image_max_age" json:"image_max_age"`
	RequestLogging    bool          `yaml:"request_logging" json:"request_logging"`
}

// GridConfig holds the grid engine limits
type GridConfig struct {
	Capacity      int           `yaml:"capacity" json:"capacity"`
	MaxPerUpload  int           `yaml:"max_per_upload" json:"max_per_upload"`
	QuotaLimit    int           `yaml:"quota_limit" json:"quota_limit"`
	DeletionDelay time.Duration `yaml:"deletion_delay" json:"deletion_delay"`
	LayoutDir     string        `yaml:"layout_dir" json:"layout_dir"`
}

// CacheConfig holds image cache configuration
type CacheConfig struct {
	Backend    string        `yaml:"backend" json:"backend"` // memory, redis, none
	TTL        time.Duration `yaml:"ttl" json:"ttl"`
	MaxEntries int           `yaml:"max_entries" json:"max_entries"`
	RedisAddr  string        `yaml:"redis_addr" json:"redis_addr"`
	RedisUser  string        `yaml:"redis_user" json:"redis_user"`
	RedisPass  string        `yaml:"redis_password" json:"redis_password"`
	RedisDB    int           `yaml:"redis_db" json:"redis_db"`
	KeyPrefix  string        `yaml:"key_prefix" json:"key_prefix"`
}

// PrefetchConfig holds cache warm-up configuration
type PrefetchConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Workers int  `yaml:"workers" json:"workers"`
	// Image fetches go to the CDN, so they get their own budget
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// UploadConfig holds local upload configuration
type UploadConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	MaxBytes  int64  `yaml:"max_bytes" json:"max_bytes"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Strategy          string `yaml:"strategy" json:"strategy"` // token_bucket, sliding_window
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int    `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds retry configuration for the posts endpoint
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	Backoff     string        `yaml:"backoff" json:"backoff"` // exponential, linear, constant
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // text, json
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		RapidAPI: RapidAPIConfig{
			Host:            "instagram-scraper-api2.p.rapidapi.com",
			BaseURL:         "https://instagram-scraper-api2.p.rapidapi.com",
			Timeout:         30 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Server: ServerConfig{
			Host:              "",
			Port:              "3000",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 3 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			ImageMaxAge:       365 * 24 * time.Hour,
			RequestLogging:    true,
		},
		Grid: GridConfig{
			Capacity:      12,
			MaxPerUpload:  3,
			QuotaLimit:    3,
			DeletionDelay: 5 * time.Second,
			LayoutDir:     "./layouts",
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTL:        24 * time.Hour,
			MaxEntries: 256,
			RedisAddr:  "localhost:6379",
			KeyPrefix:  "gridpreview:image:",
		},
		Prefetch: PrefetchConfig{
			Enabled: true,
			Workers: 3,
			RateLimit: RateLimitConfig{
				Strategy:          "token_bucket",
				RequestsPerMinute: 300,
				BurstSize:         20,
			},
		},
		Upload: UploadConfig{
			Directory: "./uploads",
			MaxBytes:  10 << 20,
		},
		RateLimit: RateLimitConfig{
			Strategy:          "token_bucket",
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Retry: RetryConfig{
			Enabled:     false,
			Backoff:     "exponential",
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    10 * time.Second,
			Multiplier:  2.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Unprefixed names used by existing deployments
	if key := os.Getenv("RAPIDAPI_KEY"); key != "" {
		c.RapidAPI.Key = key
	}
	if host := os.Getenv("RAPIDAPI_HOST"); host != "" {
		c.RapidAPI.Host = host
	}
	if key := os.Getenv("GRIDPREVIEW_RAPIDAPI_KEY"); key != "" {
		c.RapidAPI.Key = key
	}
	if host := os.Getenv("GRIDPREVIEW_RAPIDAPI_HOST"); host != "" {
		c.RapidAPI.Host = host
	}
	if baseURL := os.Getenv("GRIDPREVIEW_RAPIDAPI_BASE_URL"); baseURL != "" {
		c.RapidAPI.BaseURL = baseURL
	}

	if port := os.Getenv("GRIDPREVIEW_PORT"); port != "" {
		c.Server.Port = port
	}
	if host := os.Getenv("GRIDPREVIEW_HOST"); host != "" {
		c.Server.Host = host
	}

	if capacity := os.Getenv("GRIDPREVIEW_GRID_CAPACITY"); capacity != "" {
		if val, err := strconv.Atoi(capacity); err == nil && val > 0 {
			c.Grid.Capacity = val
		}
	}
	if limit := os.Getenv("GRIDPREVIEW_QUOTA_LIMIT"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil && val > 0 {
			c.Grid.QuotaLimit = val
		}
	}

	if backend := os.Getenv("GRIDPREVIEW_CACHE_BACKEND"); backend != "" {
		c.Cache.Backend = strings.ToLower(backend)
	}
	if addr := os.Getenv("GRIDPREVIEW_REDIS_ADDR"); addr != "" {
		c.Cache.RedisAddr = addr
	}
	if pass := os.Getenv("GRIDPREVIEW_REDIS_PASSWORD"); pass != "" {
		c.Cache.RedisPass = pass
	}

	if rpm := os.Getenv("GRIDPREVIEW_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if strategy := os.Getenv("GRIDPREVIEW_RATE_LIMIT_STRATEGY"); strategy != "" {
		c.RateLimit.Strategy = strings.ToLower(strategy)
	}

	if dir := os.Getenv("GRIDPREVIEW_UPLOAD_DIR"); dir != "" {
		c.Upload.Directory = dir
	}

	if logLevel := os.Getenv("GRIDPREVIEW_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("GRIDPREVIEW_LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		"gridpreview.yaml",
		"gridpreview.yml",
		".gridpreview.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "gridpreview", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".gridpreview.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
// Missing API credentials are deliberately not an error: a request without them
// simply fails upstream.
func (c *Config) Validate() error {
	var errs []error

	if c.RapidAPI.BaseURL == "" {
		errs = append(errs, errors.New("rapidapi base URL is required"))
	}
	if c.RapidAPI.Timeout <= 0 {
		errs = append(errs, errors.New("rapidapi timeout must be positive"))
	}

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}

	if c.Grid.Capacity <= 0 {
		errs = append(errs, errors.New("grid capacity must be positive"))
	}
	if c.Grid.MaxPerUpload <= 0 {
		errs = append(errs, errors.New("max uploads per call must be positive"))
	}
	if c.Grid.QuotaLimit <= 0 {
		errs = append(errs, errors.New("upload quota limit must be positive"))
	}
	if c.Grid.DeletionDelay <= 0 {
		errs = append(errs, errors.New("deletion delay must be positive"))
	}

	validBackends := map[string]bool{"memory": true, "redis": true, "none": true}
	if !validBackends[strings.ToLower(c.Cache.Backend)] {
		errs = append(errs, fmt.Errorf("invalid cache backend: %s", c.Cache.Backend))
	}
	if strings.ToLower(c.Cache.Backend) == "redis" && c.Cache.RedisAddr == "" {
		errs = append(errs, errors.New("redis address is required for the redis cache backend"))
	}

	if c.Prefetch.Enabled && c.Prefetch.Workers <= 0 {
		errs = append(errs, errors.New("prefetch workers must be positive"))
	}
	if c.Prefetch.Workers > 10 {
		errs = append(errs, errors.New("prefetch workers should not exceed 10"))
	}

	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload max bytes must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	validStrategies := map[string]bool{"": true, "token_bucket": true, "sliding_window": true}
	if !validStrategies[strings.ToLower(c.RateLimit.Strategy)] {
		errs = append(errs, fmt.Errorf("invalid rate limit strategy: %s", c.RateLimit.Strategy))
	}
	if !validStrategies[strings.ToLower(c.Prefetch.RateLimit.Strategy)] {
		errs = append(errs, fmt.Errorf("invalid prefetch rate limit strategy: %s", c.Prefetch.RateLimit.Strategy))
	}
	if c.Prefetch.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("prefetch requests per minute cannot be negative"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}
	validBackoffs := map[string]bool{"": true, "exponential": true, "linear": true, "constant": true}
	if !validBackoffs[strings.ToLower(c.Retry.Backoff)] {
		errs = append(errs, fmt.Errorf("invalid retry backoff: %s", c.Retry.Backoff))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if port, ok := flags["port"].(string); ok && port != "" {
		c.Server.Port = port
	}
	if host, ok := flags["host"].(string); ok && host != "" {
		c.Server.Host = host
	}
	if capacity, ok := flags["capacity"].(int); ok && capacity > 0 {
		c.Grid.Capacity = capacity
	}
	if backend, ok := flags["cache"].(string); ok && backend != "" {
		c.Cache.Backend = backend
	}
	if redisAddr, ok := flags["redis-addr"].(string); ok && redisAddr != "" {
		c.Cache.RedisAddr = redisAddr
	}
	if prefetch, ok := flags["prefetch"].(bool); ok {
		c.Prefetch.Enabled = prefetch
	}
	if uploadDir, ok := flags["upload-dir"].(string); ok && uploadDir != "" {
		c.Upload.Directory = uploadDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".gridpreview.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
