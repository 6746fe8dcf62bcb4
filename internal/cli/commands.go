package cli

import (
	"github.com/spf13/cobra"

	cmdpkg "github.com/berrythewa/clipstack/internal/cli/cmd"
)

func registerCommands(root *cobra.Command) {
	for _, command := range cmdpkg.GetCommands() {
		root.AddCommand(command)
	}
}
