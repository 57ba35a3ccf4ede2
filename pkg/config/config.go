package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent mimics a desktop Chrome build
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/124.0 Safari/537.36"

// DefaultAcceptLanguage is sent with every request
const DefaultAcceptLanguage = "it-IT,it;q=0.9,en-US;q=0.8"

// Config holds all configuration options for the scraper
type Config struct {
	// Target site and request identity
	Pinterest PinterestConfig `yaml:"pinterest" json:"pinterest"`

	// Resolution settings
	Search SearchConfig `yaml:"search" json:"search"`

	// Session-level transport retry policy
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Per-image download policy
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PinterestConfig holds site-specific configuration
type PinterestConfig struct {
	BaseURL        string `yaml:"base_url" json:"base_url"`
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
	AcceptLanguage string `yaml:"accept_language" json:"accept_language"`
}

// SearchConfig holds resolver configuration
type SearchConfig struct {
	Limit         int           `yaml:"limit" json:"limit"`
	Render        bool          `yaml:"render" json:"render"`
	RenderTimeout time.Duration `yaml:"render_timeout" json:"render_timeout"`
	APITimeout    time.Duration `yaml:"api_timeout" json:"api_timeout"`
}

// HTTPConfig holds the transport retry policy shared by every request
type HTTPConfig struct {
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	MaxRetries          int     `yaml:"max_retries" json:"max_retries"`
	BackoffFactor       float64 `yaml:"backoff_factor" json:"backoff_factor"`
	ConcurrentDownloads int     `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	RequestsPerMinute   int     `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory       string `yaml:"directory" json:"directory"`
	FileNamePattern string `yaml:"file_name_pattern" json:"file_name_pattern"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Pinterest: PinterestConfig{
			BaseURL:        "https://www.pinterest.com",
			UserAgent:      DefaultUserAgent,
			AcceptLanguage: DefaultAcceptLanguage,
		},
		Search: SearchConfig{
			Limit:         20,
			Render:        true,
			RenderTimeout: 30 * time.Second,
			APITimeout:    20 * time.Second,
		},
		HTTP: HTTPConfig{
			MaxRetries:    5,
			BackoffFactor: 1.0,
			Timeout:       20 * time.Second,
		},
		Download: DownloadConfig{
			MaxRetries:          3,
			BackoffFactor:       1.0,
			ConcurrentDownloads: 1,
			RequestsPerMinute:   0, // unlimited
		},
		Output: OutputConfig{
			Directory:       "./images",
			FileNamePattern: "image_{index}.jpg",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "",
		},
	}
}

// LoadFromEnv loads configuration from PINSCRAPER_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("PINSCRAPER_BASE_URL"); v != "" {
		c.Pinterest.BaseURL = v
	}
	if v := os.Getenv("PINSCRAPER_USER_AGENT"); v != "" {
		c.Pinterest.UserAgent = v
	}
	if v := os.Getenv("PINSCRAPER_ACCEPT_LANGUAGE"); v != "" {
		c.Pinterest.AcceptLanguage = v
	}
	if v := os.Getenv("PINSCRAPER_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("PINSCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PINSCRAPER_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	envInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	envFloat := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}

	envInt("PINSCRAPER_LIMIT", &c.Search.Limit)
	envInt("PINSCRAPER_HTTP_RETRIES", &c.HTTP.MaxRetries)
	envFloat("PINSCRAPER_HTTP_BACKOFF", &c.HTTP.BackoffFactor)
	envInt("PINSCRAPER_DOWNLOAD_RETRIES", &c.Download.MaxRetries)
	envFloat("PINSCRAPER_DOWNLOAD_BACKOFF", &c.Download.BackoffFactor)
	envInt("PINSCRAPER_CONCURRENT_DOWNLOADS", &c.Download.ConcurrentDownloads)
	envInt("PINSCRAPER_REQUESTS_PER_MINUTE", &c.Download.RequestsPerMinute)

	if v := os.Getenv("PINSCRAPER_RENDER"); v != "" {
		c.Search.Render = strings.ToLower(v) == "true"
	}

	return errors.Join(errs...)
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
	home := os.Getenv("HOME")
	locations := []string{
		".pinscraper.yaml",
		".pinscraper.yml",
		filepath.Join(home, ".config", "pinscraper", "config.yaml"),
		filepath.Join(home, ".config", "pinscraper", "config.yml"),
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

	if c.Pinterest.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	} else if u, err := url.Parse(c.Pinterest.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base URL %q is not absolute", c.Pinterest.BaseURL))
	}
	if c.Pinterest.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	if c.Search.RenderTimeout <= 0 {
		errs = append(errs, errors.New("render timeout must be positive"))
	}
	if c.Search.APITimeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	if c.HTTP.MaxRetries < 0 {
		errs = append(errs, errors.New("HTTP max retries cannot be negative"))
	}
	if c.HTTP.BackoffFactor < 0 {
		errs = append(errs, errors.New("HTTP backoff factor cannot be negative"))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("HTTP timeout must be positive"))
	}

	if c.Download.MaxRetries <= 0 {
		errs = append(errs, errors.New("download max retries must be positive"))
	}
	if c.Download.BackoffFactor < 0 {
		errs = append(errs, errors.New("download backoff factor cannot be negative"))
	}
	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 8 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 8"))
	}
	if c.Download.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if !strings.Contains(c.Output.FileNamePattern, "{index}") {
		errs = append(errs, errors.New("file name pattern must contain {index}"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"console": true, "json": true}
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

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["limit"].(int); ok {
		c.Search.Limit = v
	}
	if v, ok := flags["user-agent"].(string); ok && v != "" {
		c.Pinterest.UserAgent = v
	}
	if v, ok := flags["accept-language"].(string); ok && v != "" {
		c.Pinterest.AcceptLanguage = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.Pinterest.BaseURL = v
	}
	if v, ok := flags["retries"].(int); ok {
		c.HTTP.MaxRetries = v
	}
	if v, ok := flags["backoff"].(float64); ok {
		c.HTTP.BackoffFactor = v
	}
	if v, ok := flags["download-retries"].(int); ok {
		c.Download.MaxRetries = v
	}
	if v, ok := flags["download-backoff"].(float64); ok {
		c.Download.BackoffFactor = v
	}
	if v, ok := flags["concurrent"].(int); ok {
		c.Download.ConcurrentDownloads = v
	}
	if v, ok := flags["rate-limit"].(int); ok {
		c.Download.RequestsPerMinute = v
	}
	if v, ok := flags["render"].(bool); ok {
		c.Search.Render = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-format"].(string); ok && v != "" {
		c.Logging.Format = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".pinscraper.env"))

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
