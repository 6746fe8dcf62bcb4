package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/berrythewa/clipstack/internal/ipc"
	"github.com/berrythewa/clipstack/internal/storage"
	"github.com/berrythewa/clipstack/pkg/format"
)

// newSweepCmd creates the sweep command
func newSweepCmd() *cobra.Command {
	var (
		maxAgeDays    int
		maxItems      int
		keepFavorites bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Apply the retention policy now",
		Long: `Delete entries older than the retention age, then trim the history to
the maximum item count. Flags override the configured retention policy for
this sweep only. Favorites are kept unless --keep-favorites=false.

Examples:
  clipstack sweep                      # Use the configured policy
  clipstack sweep --max-age-days 1     # Drop everything older than a day
  clipstack sweep --max-items 100 --keep-favorites=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAgeDays < 0 || maxItems < 0 {
				return fmt.Errorf("retention limits must not be negative")
			}
			req := ipc.SweepArgs{MaxAgeDays: maxAgeDays, MaxItems: maxItems}
			if cmd.Flags().Changed("keep-favorites") {
				req.KeepFavorites = &keepFavorites
			}

			var res storage.SweepResult
			if err := call(cmd.Context(), ipc.CmdSweep, req, &res); err != nil {
				return err
			}
			if useJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.FormatStats("Retention sweep", []format.Stat{
				{Label: "Expired", Value: strconv.Itoa(res.Expired)},
				{Label: "Trimmed", Value: strconv.Itoa(res.Trimmed)},
				{Label: "Total", Value: strconv.Itoa(res.Total())},
			}, displayOptions()))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "delete entries older than this many days")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "keep at most this many entries")
	cmd.Flags().BoolVar(&keepFavorites, "keep-favorites", true, "never delete favorites")
	return cmd
}
