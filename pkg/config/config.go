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

// Config holds all application-level configuration for nekodl.
// Provider-specific settings live in Extras, not here.
type Config struct {
	Output    OutputConfig    `yaml:"output" json:"output"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	Gateway   GatewayConfig   `yaml:"gateway" json:"gateway"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Viewer    ViewerConfig    `yaml:"viewer" json:"viewer"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Path string `yaml:"path" json:"path"`
}

// DownloadConfig controls the batch orchestrator and downloader
type DownloadConfig struct {
	// BatchSize is the number of downloads run concurrently per group
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// RetryDepth is how many times a failed download is retried
	RetryDepth int `yaml:"retry_depth" json:"retry_depth"`
	// ChunkSize is the buffer size used when streaming a body to disk
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
}

// GatewayConfig controls the shared HTTP client
type GatewayConfig struct {
	Timeout             time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent           string        `yaml:"user_agent" json:"user_agent"`
	DefaultRetryAfter   time.Duration `yaml:"default_retry_after" json:"default_retry_after"`
	MaxRetryAfter       time.Duration `yaml:"max_retry_after" json:"max_retry_after"`
	MaxRateLimitRetries int           `yaml:"max_rate_limit_retries" json:"max_rate_limit_retries"`
}

// RateLimitConfig holds pacing for providers without a bulk endpoint
type RateLimitConfig struct {
	FetchInterval time.Duration `yaml:"fetch_interval" json:"fetch_interval"`
}

// ViewerConfig selects the external program used by --view
type ViewerConfig struct {
	Command string `yaml:"command" json:"command"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultUserAgent is sent on every gateway request unless overridden
const DefaultUserAgent = "nekodl/1.0 (+https://github.com/nekodl/nekodl)"

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Path: "./images",
		},
		Download: DownloadConfig{
			BatchSize:  50,
			RetryDepth: 5,
			ChunkSize:  32 * 1024,
		},
		Gateway: GatewayConfig{
			Timeout:             5 * time.Minute,
			UserAgent:           DefaultUserAgent,
			DefaultRetryAfter:   60 * time.Second,
			MaxRetryAfter:       5 * time.Minute,
			MaxRateLimitRetries: 5,
		},
		RateLimit: RateLimitConfig{
			FetchInterval: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "error",
		},
	}
}

// LoadFromEnv loads configuration from NEKODL_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("NEKODL_OUTPUT_PATH"); v != "" {
		c.Output.Path = v
	}
	if v := os.Getenv("NEKODL_USER_AGENT"); v != "" {
		c.Gateway.UserAgent = v
	}
	if v := os.Getenv("NEKODL_VIEWER"); v != "" {
		c.Viewer.Command = v
	}
	if v := os.Getenv("NEKODL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NEKODL_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	ints := map[string]*int{
		"NEKODL_BATCH_SIZE":             &c.Download.BatchSize,
		"NEKODL_RETRY_DEPTH":            &c.Download.RetryDepth,
		"NEKODL_MAX_RATE_LIMIT_RETRIES": &c.Gateway.MaxRateLimitRetries,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"NEKODL_TIMEOUT":        &c.Gateway.Timeout,
		"NEKODL_FETCH_INTERVAL": &c.RateLimit.FetchInterval,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			*dst = d
		}
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
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

// DefaultConfigPath is where `config init` writes when no path is given
func DefaultConfigPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "nekodl", "config.yaml")
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	locations := []string{
		".nekodl.yaml",
		".nekodl.yml",
		DefaultConfigPath(),
		filepath.Join(os.Getenv("HOME"), ".nekodl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Output.Path == "" {
		errs = append(errs, errors.New("output path is required"))
	}

	if c.Download.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.Download.RetryDepth < 0 {
		errs = append(errs, errors.New("retry depth cannot be negative"))
	}
	if c.Download.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}

	if c.Gateway.Timeout <= 0 {
		errs = append(errs, errors.New("gateway timeout must be positive"))
	}
	if c.Gateway.DefaultRetryAfter < 0 {
		errs = append(errs, errors.New("default retry-after cannot be negative"))
	}
	if c.Gateway.MaxRetryAfter < c.Gateway.DefaultRetryAfter {
		errs = append(errs, errors.New("max retry-after must not be below the default retry-after"))
	}
	if c.Gateway.MaxRateLimitRetries < 0 {
		errs = append(errs, errors.New("max rate limit retries cannot be negative"))
	}

	if c.RateLimit.FetchInterval < 0 {
		errs = append(errs, errors.New("fetch interval cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if path, ok := flags["path"].(string); ok && path != "" {
		c.Output.Path = path
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
	if debug, ok := flags["debug"].(bool); ok && debug {
		c.Logging.Level = "debug"
	}
	if viewer, ok := flags["viewer"].(string); ok && viewer != "" {
		c.Viewer.Command = viewer
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".nekodl.env"))

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
