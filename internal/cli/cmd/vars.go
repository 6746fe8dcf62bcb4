package cmd

import (
	"os"

	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/config"
)

// Shared variables across all commands
var (
	cfg       *config.Config
	zapLogger *zap.Logger

	// Global flags, bound by AddGlobalFlags
	cfgFile    string
	verbose    bool
	quiet      bool
	useJSON    bool
	noColors   bool
	passphrase string
)

// SetConfig sets the configuration for commands
func SetConfig(config *config.Config) {
	cfg = config
}

// GetConfig returns the configuration loaded for this invocation.
func GetConfig() *config.Config {
	return cfg
}

// SetZapLogger sets the logger for commands
func SetZapLogger(log *zap.Logger) {
	zapLogger = log
}

// GetZapLogger returns the command logger, or a no-op logger before setup.
func GetZapLogger() *zap.Logger {
	if zapLogger == nil {
		return zap.NewNop()
	}
	return zapLogger
}

// ConfigFile is the --config flag value.
func ConfigFile() string {
	return cfgFile
}

// Passphrase returns the --passphrase flag, or the environment variable
// when the flag is empty.
func Passphrase() string {
	if passphrase != "" {
		return passphrase
	}
	return os.Getenv(config.PassphraseEnv)
}
