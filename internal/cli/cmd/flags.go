package cmd

import (
	"github.com/spf13/cobra"

	"github.com/berrythewa/clipstack/internal/common"
)

// FullLogging marks commands that log at the configured level. Every other
// command is a short-lived client that only reports warnings.
const FullLogging = "full-logging"

// AddGlobalFlags binds the persistent flags shared by every command.
func AddGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is the platform config dir, clipstack/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "minimize output")
	flags.BoolVar(&useJSON, "json", false, "output in JSON format")
	flags.BoolVar(&noColors, "no-colors", false, "disable colored output")
	flags.StringVar(&passphrase, "passphrase", "", "encryption passphrase (default $CLIPSTACK_PASSPHRASE)")
}

// Verbosity resolves --verbose and --quiet for cmd.
func Verbosity(cmd *cobra.Command) common.Verbosity {
	switch {
	case verbose:
		return common.VerbosityVerbose
	case quiet:
		return common.VerbosityQuiet
	}
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[FullLogging]; ok {
			return common.VerbosityDefault
		}
	}
	return common.VerbosityQuiet
}
