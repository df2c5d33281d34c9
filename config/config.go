// Package config manages application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultChannelID is the Cracking the Cryptic YouTube channel.
const DefaultChannelID = "UCC-UOdK8-mIjxBQm_ot1T-Q"

// Config holds all application configuration for catalog synchronization.
type Config struct {
	// DataDir holds the database and the process lock file.
	DataDir string `yaml:"data_dir"`
	// ChannelID is the YouTube channel whose uploads are tracked.
	ChannelID string `yaml:"channel_id"`
	// APIKey overrides the key stored in the settings table when set.
	APIKey string `yaml:"api_key"`

	// PageSize is the playlist page size requested from the API (max 50)
	PageSize int `yaml:"page_size"`
	// RequestsPerSecond paces calls to the YouTube Data API
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// RequestTimeout bounds a single HTTP request
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxRetries is the maximum number of retries for failed API calls
	MaxRetries int `yaml:"max_retries"`
	// InitialBackoff is the initial backoff duration for retries
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// MaxBackoff is the maximum backoff duration for retries
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// BackoffMultiplier is the multiplier for exponential backoff (must be > 1)
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	// CircuitFailureThreshold opens the circuit after this many consecutive failures
	CircuitFailureThreshold int `yaml:"circuit_failure_threshold"`
	// CircuitRecoveryTimeout is how long an open circuit waits before probing again
	CircuitRecoveryTimeout time.Duration `yaml:"circuit_recovery_timeout"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`
	// LogFormat is console, json or auto (console on a terminal)
	LogFormat string `yaml:"log_format"`

	// TickInterval is how often the terminal consumer polls for results
	TickInterval time.Duration `yaml:"tick_interval"`
	// LockTimeout bounds the wait for another process holding the database lock
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:                 defaultDataDir(),
		ChannelID:               DefaultChannelID,
		PageSize:                50,
		RequestsPerSecond:       5,
		RequestTimeout:          30 * time.Second,
		MaxRetries:              3,
		InitialBackoff:          1 * time.Second,
		MaxBackoff:              30 * time.Second,
		BackoffMultiplier:       2.0,
		CircuitFailureThreshold: 5,
		CircuitRecoveryTimeout:  30 * time.Second,
		LogLevel:                "info",
		LogFormat:               "auto",
		TickInterval:            100 * time.Millisecond,
		LockTimeout:             5 * time.Second,
	}
}

// Load loads configuration from the config file, .env and environment variables, then validates it.
// Priority: env vars > config file > defaults. An empty path searches the default locations.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(path); err != nil {
		// Config file is optional unless explicitly requested
		if path != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath returns the SQLite database location inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "db", "ctc_tracker.db")
}

// LockPath returns the process lock file guarding the database.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "db", "ctc_tracker.lock")
}

// EnsureDirectories creates the data directories if they are missing.
func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(filepath.Dir(c.DatabasePath()), 0o755)
}

func (c *Config) loadFromFile(path string) error {
	paths := []string{path}
	if path == "" {
		paths = []string{
			"ctctracker.yaml",
			filepath.Join(userConfigDir(), "ctctracker", "ctctracker.yaml"),
		}
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && path == "" {
				continue
			}
			return err
		}

		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), c); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("CTCTRACKER_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CTCTRACKER_CHANNEL_ID"); v != "" {
		c.ChannelID = v
	}
	if v := os.Getenv("CTC_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("CTCTRACKER_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PageSize = n
		}
	}
	if v := os.Getenv("CTCTRACKER_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("CTCTRACKER_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv("CTCTRACKER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("CTCTRACKER_INITIAL_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.InitialBackoff = d
		}
	}
	if v := os.Getenv("CTCTRACKER_MAX_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MaxBackoff = d
		}
	}
	if v := os.Getenv("CTCTRACKER_BACKOFF_MULTIPLIER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.BackoffMultiplier = f
		}
	}
	if v := os.Getenv("CTCTRACKER_CIRCUIT_FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CircuitFailureThreshold = n
		}
	}
	if v := os.Getenv("CTCTRACKER_CIRCUIT_RECOVERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CircuitRecoveryTimeout = d
		}
	}
	if v := os.Getenv("CTCTRACKER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CTCTRACKER_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("CTCTRACKER_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.TickInterval = d
		}
	}
	if v := os.Getenv("CTCTRACKER_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.LockTimeout = d
		}
	}
}

// Validate checks that configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if len(c.ChannelID) < 3 {
		return fmt.Errorf("channel_id %q is not a channel id", c.ChannelID)
	}
	if c.PageSize <= 0 || c.PageSize > 50 {
		return fmt.Errorf("page_size must be between 1 and 50")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	if c.CircuitFailureThreshold <= 0 {
		return fmt.Errorf("circuit_failure_threshold must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	switch c.LogFormat {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("log_format %q is not one of auto, console, json", c.LogFormat)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive")
	}
	return nil
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

func defaultDataDir() string {
	return filepath.Join(userConfigDir(), "ctctracker")
}
