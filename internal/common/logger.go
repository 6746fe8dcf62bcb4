package common

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/berrythewa/clipstack/internal/config"
)

// Verbosity adjusts the configured log level from the command line.
type Verbosity int

const (
	VerbosityDefault Verbosity = iota
	// VerbosityVerbose switches to a development logger at debug level.
	VerbosityVerbose
	// VerbosityQuiet raises the level to warn.
	VerbosityQuiet
)

// NewLogger creates a new logger instance
func NewLogger(cfg config.LogConfig, verbosity Verbosity) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	switch verbosity {
	case VerbosityVerbose:
		zc = zap.NewDevelopmentConfig()
	default:
		zc = zap.Config{
			Level:       zap.NewAtomicLevelAt(level),
			Development: false,
			Sampling: &zap.SamplingConfig{
				Initial:    100,
				Thereafter: 100,
			},
			Encoding:         "json",
			EncoderConfig:    zap.NewProductionEncoderConfig(),
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
		}
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if cfg.Format == "console" {
			zc.Encoding = "console"
			zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		if verbosity == VerbosityQuiet && level < zapcore.WarnLevel {
			zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		zc.OutputPaths = []string{cfg.File}
	}

	return zc.Build()
}
