// Package cli implements the clipstack command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cmdpkg "github.com/berrythewa/clipstack/internal/cli/cmd"
	"github.com/berrythewa/clipstack/internal/common"
	"github.com/berrythewa/clipstack/internal/config"
)

// Version information - set by main
var (
	Version   = "dev"
	BuildTime = "unknown"
	Commit    = "none"
)

// NewRootCmd builds the command tree. Each call returns a fresh tree with its
// own flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clipstack",
		Short: "A clipboard history manager",
		Long: `clipstack records what you copy and keeps it searchable:
  • Text, links, rich text and images, classified and normalized
  • Repeated copies collapsed into one entry
  • Favorites, free-form notes and retention sweeps
  • Optional encryption of stored text at rest

Start the recorder with 'clipstack daemon start', then browse with
'clipstack history list'.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			cmdpkg.GetZapLogger().Sync()
		},
	}
	cmdpkg.AddGlobalFlags(root)
	registerCommands(root)
	return root
}

// setup loads the config and builds the logger shared with the cmd package.
func setup(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if _, skip := cmd.Annotations[cmdpkg.SkipConfig]; !skip {
		loaded, err := config.Load(cmdpkg.ConfigFile())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	logger, err := common.NewLogger(cfg.Log, cmdpkg.Verbosity(cmd))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Debug("Configuration loaded",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("db_path", cfg.Storage.DBPath),
		zap.String("socket", cfg.IPC.SocketPath))

	cmdpkg.SetConfig(cfg)
	cmdpkg.SetZapLogger(logger)
	return nil
}

// Execute runs the command tree. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// SetVersionInfo sets the version information used by the version command
func SetVersionInfo(version, buildTime, commit string) {
	Version = version
	BuildTime = buildTime
	Commit = commit
	cmdpkg.SetVersionInfo(version, buildTime, commit)
}
