// File: internal/config/platform.go

package config

import (
	"runtime"
)

// PlatformDefaults holds platform-specific default values
type PlatformDefaults struct {
	PollIntervalMs int64  `json:"poll_interval_ms" yaml:"poll_interval_ms"`
	Source         string `json:"source" yaml:"source"`
	LogFormat      string `json:"log_format" yaml:"log_format"`
}

// GetPlatformDefaults returns platform-optimized default values
func GetPlatformDefaults() PlatformDefaults {
	switch runtime.GOOS {
	case "windows":
		return PlatformDefaults{
			// Windows has event-based clipboard notifications
			PollIntervalMs: 250,
			Source:         "auto",
			LogFormat:      "console",
		}
	case "darwin":
		return PlatformDefaults{
			// macOS exposes a change count, polled by the native source
			PollIntervalMs: 500,
			Source:         "auto",
			LogFormat:      "console",
		}
	default: // Linux and other Unix-like systems
		return PlatformDefaults{
			// X11/Wayland may be missing on headless hosts
			PollIntervalMs: 500,
			Source:         "auto",
			LogFormat:      "console",
		}
	}
}

// ApplyPlatformDefaults fills values the config leaves unset
func ApplyPlatformDefaults(cfg *Config) {
	defaults := GetPlatformDefaults()

	if cfg.Capture.PollIntervalMs == 0 {
		cfg.Capture.PollIntervalMs = defaults.PollIntervalMs
	}
	if cfg.Capture.Source == "" {
		cfg.Capture.Source = defaults.Source
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.LogFormat
	}
}
