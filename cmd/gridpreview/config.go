package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gridpreview/pkg/auth"
	"gridpreview/pkg/config"
	"gridpreview/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage gridpreview configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (GRIDPREVIEW_*, RAPIDAPI_KEY, RAPIDAPI_HOST)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'gridpreview.yaml'
unless a different path is specified with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.
The API key and redis password are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# gridpreview configuration
#
# Secrets are better kept out of this file: export RAPIDAPI_KEY or run
# 'gridpreview auth login'.

rapidapi:
  host: "instagram-scraper-api2.p.rapidapi.com"
  base_url: "https://instagram-scraper-api2.p.rapidapi.com"
  timeout: 30s
  # consecutive failures before the posts circuit opens
  breaker_failures: 5
  breaker_timeout: 30s

server:
  host: ""
  port: "3000"
  read_timeout: 10s
  read_header_timeout: 3s
  write_timeout: 60s
  idle_timeout: 15s
  shutdown_timeout: 10s
  # Cache-Control max-age sent by the image proxy
  image_max_age: 8760h
  request_logging: true

grid:
  capacity: 12
  max_per_upload: 3
  quota_limit: 3
  # how long the delete action stays visible
  deletion_delay: 5s
  layout_dir: "./layouts"

cache:
  # memory, redis, none
  backend: "memory"
  ttl: 24h
  max_entries: 256
  redis_addr: "localhost:6379"
  redis_db: 0
  key_prefix: "gridpreview:image:"

prefetch:
  enabled: true
  workers: 3
  # image fetches from the CDN; 0 disables limiting
  rate_limit:
    strategy: "token_bucket"
    requests_per_minute: 300
    burst_size: 20

upload:
  directory: "./uploads"
  max_bytes: 10485760

# posts lookups against RapidAPI
rate_limit:
  # token_bucket, sliding_window
  strategy: "token_bucket"
  requests_per_minute: 60
  burst_size: 10

retry:
  # posts lookups are not retried unless enabled
  enabled: false
  # exponential, linear, constant
  backoff: "exponential"
  max_attempts: 3
  base_delay: 1s
  max_delay: 10s
  multiplier: 2.0

logging:
  # debug, info, warn, error
  level: "info"
  # text, json
  format: "text"
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "gridpreview.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store your RapidAPI key with 'gridpreview auth login'")
	fmt.Println("2. Run 'gridpreview config validate' to check the configuration")
	fmt.Println("3. Start the service with 'gridpreview serve'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.RapidAPI.Key != "" {
		display.RapidAPI.Key = auth.Sanitize(&auth.Credentials{APIKey: display.RapidAPI.Key}).APIKey
	}
	if display.Cache.RedisPass != "" {
		display.Cache.RedisPass = "********"
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (GRIDPREVIEW_*, RAPIDAPI_KEY, RAPIDAPI_HOST)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in default locations)")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return err
	}

	var warnings []string
	if cfg.RapidAPI.Key == "" {
		warnings = append(warnings, "RapidAPI key not set in config or environment; the credential store will be used")
	}
	for _, dir := range []string{cfg.Upload.Directory, cfg.Grid.LayoutDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create directory %s: %v", dir, err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Listen address: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Grid: %d cells, %d uploads per batch, quota %d\n", cfg.Grid.Capacity, cfg.Grid.MaxPerUpload, cfg.Grid.QuotaLimit)
	fmt.Printf("  Image cache: %s\n", cfg.Cache.Backend)
	fmt.Printf("  Prefetch: %v (%d workers)\n", cfg.Prefetch.Enabled, cfg.Prefetch.Workers)
	fmt.Printf("  Rate limit: %d requests/minute (%s)\n", cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Strategy)
	fmt.Printf("  Retry: %v (%s backoff, %d attempts)\n", cfg.Retry.Enabled, cfg.Retry.Backoff, cfg.Retry.MaxAttempts)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
