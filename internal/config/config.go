package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/impfwidget/internal/feed"
	feedhttp "github.com/ligustah/impfwidget/internal/http"
	"github.com/ligustah/impfwidget/internal/progress"
	"github.com/ligustah/impfwidget/pkg/widget"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "IMPFWIDGET_"

// Config defines configuration for the impfwidget CLI.
type Config struct {
	URL             string        `yaml:"url"`
	Population      int64         `yaml:"population"`
	Family          string        `yaml:"family"`
	Locale          string        `yaml:"locale"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	Timeout         time.Duration `yaml:"timeout"`
	CacheURL        string        `yaml:"cache_url"`
	Retry           RetryConfig   `yaml:"retry"`
	Server          ServerConfig  `yaml:"server"`
	Log             LogConfig     `yaml:"log"`
}

// RetryConfig defines retry behavior. Zero attempts means a single request.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// ServerConfig defines the HTTP server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	RateLimit int    `yaml:"rate_limit"` // requests per second per client
	Burst     int    `yaml:"burst"`
}

// LogConfig defines logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		URL:             feed.DefaultURL,
		Population:      progress.GermanyPopulation,
		Family:          string(widget.FamilyMedium),
		Locale:          "de-DE",
		RefreshInterval: 28800 * time.Second, // 8 hours
		Timeout:         30 * time.Second,
		Retry: RetryConfig{
			Attempts:   0,
			Backoff:    time.Second,
			MaxBackoff: 30 * time.Second,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 10,
			Burst:     20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	URL             string           `yaml:"url"`
	Population      int64            `yaml:"population"`
	Family          string           `yaml:"family"`
	Locale          string           `yaml:"locale"`
	RefreshInterval string           `yaml:"refresh_interval"`
	Timeout         string           `yaml:"timeout"`
	CacheURL        string           `yaml:"cache_url"`
	Retry           yamlRetryConfig  `yaml:"retry"`
	Server          yamlServerConfig `yaml:"server"`
	Log             LogConfig        `yaml:"log"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

type yamlServerConfig struct {
	Addr      string `yaml:"addr"`
	RateLimit int    `yaml:"rate_limit"`
	Burst     int    `yaml:"burst"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.URL != "" {
		cfg.URL = yc.URL
	}
	if yc.Population != 0 {
		cfg.Population = yc.Population
	}
	if yc.Family != "" {
		cfg.Family = yc.Family
	}
	if yc.Locale != "" {
		cfg.Locale = yc.Locale
	}
	if yc.RefreshInterval != "" {
		d, err := ParseDuration(yc.RefreshInterval)
		if err != nil {
			return Config{}, fmt.Errorf("parse refresh_interval: %w", err)
		}
		cfg.RefreshInterval = d
	}
	if yc.Timeout != "" {
		d, err := ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.CacheURL != "" {
		cfg.CacheURL = yc.CacheURL
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.Backoff != "" {
		d, err := ParseDuration(yc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if yc.Retry.MaxBackoff != "" {
		d, err := ParseDuration(yc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}
	if yc.Server.Addr != "" {
		cfg.Server.Addr = yc.Server.Addr
	}
	if yc.Server.RateLimit != 0 {
		cfg.Server.RateLimit = yc.Server.RateLimit
	}
	if yc.Server.Burst != 0 {
		cfg.Server.Burst = yc.Server.Burst
	}
	if yc.Log.Level != "" {
		cfg.Log.Level = yc.Log.Level
	}
	if yc.Log.Format != "" {
		cfg.Log.Format = yc.Log.Format
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set are not overridden. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the IMPFWIDGET_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := getenv("URL"); v != "" {
		c.URL = v
	}
	if v := getenv("POPULATION"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %sPOPULATION: %w", EnvPrefix, err)
		}
		c.Population = n
	}
	if v := getenv("FAMILY"); v != "" {
		c.Family = v
	}
	if v := getenv("LOCALE"); v != "" {
		c.Locale = v
	}
	if v := getenv("REFRESH_INTERVAL"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sREFRESH_INTERVAL: %w", EnvPrefix, err)
		}
		c.RefreshInterval = d
	}
	if v := getenv("TIMEOUT"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v := getenv("CACHE_URL"); v != "" {
		c.CacheURL = v
	}
	if v := getenv("RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sRETRY_ATTEMPTS: %w", EnvPrefix, err)
		}
		c.Retry.Attempts = n
	}
	if v := getenv("RETRY_BACKOFF"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sRETRY_BACKOFF: %w", EnvPrefix, err)
		}
		c.Retry.Backoff = d
	}
	if v := getenv("RETRY_MAX_BACKOFF"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sRETRY_MAX_BACKOFF: %w", EnvPrefix, err)
		}
		c.Retry.MaxBackoff = d
	}
	if v := getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("SERVER_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sSERVER_RATE_LIMIT: %w", EnvPrefix, err)
		}
		c.Server.RateLimit = n
	}
	if v := getenv("SERVER_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sSERVER_BURST: %w", EnvPrefix, err)
		}
		c.Server.Burst = n
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	return nil
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: URL %q must be an absolute http(s) URL", c.URL)
	}
	if c.Population <= 0 {
		return errors.New("config: population must be positive")
	}
	if _, err := widget.ParseFamily(c.Family); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := progress.ParseLocale(c.Locale); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.RefreshInterval <= 0 {
		return errors.New("config: refresh_interval must be positive")
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	if c.Retry.Attempts < 0 {
		return errors.New("config: retry.attempts must not be negative")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("config: server.rate_limit must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.URL != "" {
		c.URL = override.URL
	}
	if override.Population != 0 {
		c.Population = override.Population
	}
	if override.Family != "" {
		c.Family = override.Family
	}
	if override.Locale != "" {
		c.Locale = override.Locale
	}
	if override.RefreshInterval != 0 {
		c.RefreshInterval = override.RefreshInterval
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.CacheURL != "" {
		c.CacheURL = override.CacheURL
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	if override.Server.Addr != "" {
		c.Server.Addr = override.Server.Addr
	}
	if override.Server.RateLimit != 0 {
		c.Server.RateLimit = override.Server.RateLimit
	}
	if override.Server.Burst != 0 {
		c.Server.Burst = override.Server.Burst
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	return c
}

// HTTPOptions returns the HTTP client options for c.
func (c Config) HTTPOptions() feedhttp.Options {
	opts := feedhttp.DefaultOptions()
	opts.Timeout = c.Timeout
	opts.RetryAttempts = c.Retry.Attempts
	if c.Retry.Backoff > 0 {
		opts.RetryBackoff = c.Retry.Backoff
	}
	if c.Retry.MaxBackoff > 0 {
		opts.RetryMaxBackoff = c.Retry.MaxBackoff
	}
	return opts
}

// ParseDuration parses a Go duration ("8h") or a plain number of seconds ("28800").
func ParseDuration(s string) (time.Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
