package cmd

import (
	"github.com/spf13/cobra"
)

// GetCommands returns all commands for registration
func GetCommands() []*cobra.Command {
	return []*cobra.Command{
		newDaemonCmd(),
		newHistoryCmd(),
		newNotesCmd(),
		newSweepCmd(),
		newCaptureCmd(),
		newCopyCmd(),
		newPauseCmd(true),
		newPauseCmd(false),
		newUnlockCmd(),
		newWatchCmd(),
		newConfigCmd(),
		newVersionCmd(),
	}
}
