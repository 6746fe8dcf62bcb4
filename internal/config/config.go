// File: internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// PassphraseEnv names the environment variable holding the encryption
// passphrase. The passphrase is never written to the config file.
const PassphraseEnv = "CLIPSTACK_PASSPHRASE"

// Config holds all application configuration
type Config struct {
	Log        LogConfig        `json:"log" yaml:"log"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	Capture    CaptureConfig    `json:"capture" yaml:"capture"`
	Retention  RetentionConfig  `json:"retention" yaml:"retention"`
	Encryption EncryptionConfig `json:"encryption" yaml:"encryption"`
	IPC        IPCConfig        `json:"ipc" yaml:"ipc"`
}

// LogConfig holds logging-related configuration
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "json" or "console"
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// StorageConfig selects the history backend
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DBPath string `json:"db_path" yaml:"db_path"`
}

// CaptureConfig tunes the capture pipeline
type CaptureConfig struct {
	DedupeWindowMs int64  `json:"dedupe_window_ms" yaml:"dedupe_window_ms"`
	PollIntervalMs int64  `json:"poll_interval_ms" yaml:"poll_interval_ms"`
	MaxItemBytes   int64  `json:"max_item_bytes" yaml:"max_item_bytes"`
	Paused         bool   `json:"paused" yaml:"paused"`
	Source         string `json:"source" yaml:"source"` // "auto", "native" or "poll"
}

// RetentionConfig controls the periodic sweep
type RetentionConfig struct {
	Enabled              bool `json:"enabled" yaml:"enabled"`
	MaxAgeDays           int  `json:"max_age_days" yaml:"max_age_days"`
	KeepFavorites        bool `json:"keep_favorites" yaml:"keep_favorites"`
	MaxItems             int  `json:"max_items" yaml:"max_items"`
	SweepIntervalMinutes int  `json:"sweep_interval_minutes" yaml:"sweep_interval_minutes"`
}

// EncryptionConfig toggles encryption of text at rest
type EncryptionConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// IPCConfig holds the daemon control socket settings
type IPCConfig struct {
	SocketPath string `json:"socket_path" yaml:"socket_path"`
}

// DedupeWindow is the debounce window of the capture guard.
func (c CaptureConfig) DedupeWindow() time.Duration {
	return time.Duration(c.DedupeWindowMs) * time.Millisecond
}

// PollInterval is the read interval of the polling clipboard source.
func (c CaptureConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// MaxAge is the age past which items are swept.
func (r RetentionConfig) MaxAge() time.Duration {
	return time.Duration(r.MaxAgeDays) * 24 * time.Hour
}

// SweepInterval is the period of the retention sweep.
func (r RetentionConfig) SweepInterval() time.Duration {
	return time.Duration(r.SweepIntervalMinutes) * time.Minute
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	paths, err := GetPaths()
	if err != nil {
		paths = fallbackPaths()
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			Driver: DriverBolt,
			DBPath: paths.DBFile(DriverBolt),
		},
		Capture: CaptureConfig{
			DedupeWindowMs: 1200,
			MaxItemBytes:   100 * 1024 * 1024, // 100MB
		},
		Retention: RetentionConfig{
			Enabled:              false,
			MaxAgeDays:           7,
			KeepFavorites:        true,
			MaxItems:             0,
			SweepIntervalMinutes: 60,
		},
		IPC: IPCConfig{
			SocketPath: paths.SocketFile,
		},
	}
	ApplyPlatformDefaults(cfg)
	return cfg
}

// Load loads the configuration from the specified file or creates default if not exists
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		var err error
		configPath, err = getConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(cfg)
	cfg.fillDerived()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

// fillDerived sets paths left empty in the file.
func (c *Config) fillDerived() {
	if c.Storage.DBPath != "" && c.IPC.SocketPath != "" {
		return
	}
	paths, err := GetPaths()
	if err != nil {
		paths = fallbackPaths()
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = paths.DBFile(c.Storage.Driver)
	}
	if c.IPC.SocketPath == "" {
		c.IPC.SocketPath = paths.SocketFile
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverBolt, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Capture.Source {
	case "auto", "native", "poll":
	default:
		return fmt.Errorf("unknown clipboard source %q", c.Capture.Source)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Capture.DedupeWindowMs < 0 || c.Capture.PollIntervalMs < 0 || c.Capture.MaxItemBytes < 0 {
		return errors.New("capture durations and sizes must not be negative")
	}
	if c.Retention.MaxAgeDays < 0 || c.Retention.MaxItems < 0 {
		return errors.New("retention limits must not be negative")
	}
	if c.Retention.Enabled && c.Retention.SweepIntervalMinutes <= 0 {
		return errors.New("retention.sweep_interval_minutes must be positive when retention is enabled")
	}
	return nil
}

// Save saves the configuration to the specified file
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigPath returns the path Load uses when given an empty path.
func ConfigPath() (string, error) {
	return getConfigPath()
}

// overrideFromEnv overrides configuration values from environment variables
func overrideFromEnv(config *Config) {
	if val := os.Getenv("CLIPSTACK_LOG_LEVEL"); val != "" {
		config.Log.Level = val
	}
	if val := os.Getenv("CLIPSTACK_LOG_FORMAT"); val != "" {
		config.Log.Format = val
	}

	// Storage
	if val := os.Getenv("CLIPSTACK_STORAGE_DRIVER"); val != "" {
		config.Storage.Driver = val
	}
	if val := os.Getenv("CLIPSTACK_DB_PATH"); val != "" {
		config.Storage.DBPath = val
	}

	// Capture
	if val := os.Getenv("CLIPSTACK_DEDUPE_WINDOW_MS"); val != "" {
		if ms, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.Capture.DedupeWindowMs = ms
		}
	}
	if val := os.Getenv("CLIPSTACK_POLL_INTERVAL_MS"); val != "" {
		if ms, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.Capture.PollIntervalMs = ms
		}
	}
	if val := os.Getenv("CLIPSTACK_SOURCE"); val != "" {
		config.Capture.Source = val
	}
	if val := os.Getenv("CLIPSTACK_PAUSED"); val != "" {
		config.Capture.Paused = val == "true"
	}

	// Retention
	if val := os.Getenv("CLIPSTACK_RETENTION_ENABLED"); val != "" {
		config.Retention.Enabled = val == "true"
	}
	if val := os.Getenv("CLIPSTACK_MAX_AGE_DAYS"); val != "" {
		if days, err := strconv.Atoi(val); err == nil {
			config.Retention.MaxAgeDays = days
		}
	}
	if val := os.Getenv("CLIPSTACK_MAX_ITEMS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Retention.MaxItems = n
		}
	}
	if val := os.Getenv("CLIPSTACK_KEEP_FAVORITES"); val != "" {
		config.Retention.KeepFavorites = val == "true"
	}

	if val := os.Getenv("CLIPSTACK_ENCRYPTION"); val != "" {
		config.Encryption.Enabled = val == "true"
	}
	if val := os.Getenv("CLIPSTACK_SOCKET"); val != "" {
		config.IPC.SocketPath = val
	}
}
