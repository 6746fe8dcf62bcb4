package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/berrythewa/clipstack/internal/ipc"
	"github.com/berrythewa/clipstack/internal/types"
	"github.com/berrythewa/clipstack/pkg/format"
)

// newHistoryCmd creates the history command with all subcommands
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"h"},
		Short:   "Manage clipboard history",
		Long: `Manage clipboard history:
  • List and search stored items, newest first
  • Show a single item in full
  • Mark favorites, which survive retention sweeps
  • Delete items or clear the whole history

Commands talk to the running daemon, or open the history directly when
no daemon is running.`,
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistorySearchCmd())
	cmd.AddCommand(newHistoryFavCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	cmd.AddCommand(newHistoryClearCmd())

	return cmd
}

// listFlags are shared by list and search.
type listFlags struct {
	limit     int
	offset    int
	favorites bool
	compact   bool
	maxLines  int
	maxWidth  int
}

func (f *listFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 20, "maximum number of entries to show")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "skip this many entries")
	cmd.Flags().BoolVarP(&f.favorites, "favorites", "f", false, "show favorites only")
	cmd.Flags().BoolVarP(&f.compact, "compact", "c", false, "use compact single-line format")
	cmd.Flags().IntVar(&f.maxLines, "max-lines", 10, "maximum lines to show per entry (0 = no limit)")
	cmd.Flags().IntVar(&f.maxWidth, "max-width", 80, "maximum width per line (0 = no limit)")
}

func (f *listFlags) args() ipc.ListArgs {
	return ipc.ListArgs{Limit: f.limit, Offset: f.offset, Favorites: f.favorites}
}

func (f *listFlags) options() format.Options {
	opts := displayOptions()
	if f.compact {
		opts.Compact = true
		opts.ShowMetadata = false
		opts.MaxLines = 1
	} else {
		opts.MaxLines = f.maxLines
	}
	opts.MaxWidth = f.maxWidth
	return opts
}

func printItems(w io.Writer, items []*types.ClipItem, opts format.Options) error {
	if useJSON {
		return writeJSON(w, items)
	}
	_, err := fmt.Fprintln(w, format.FormatItemList(items, opts))
	return err
}

// newHistoryListCmd creates the list subcommand
func newHistoryListCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clipboard history",
		Long: `List clipboard history entries, newest first.

Examples:
  clipstack history list                # Show the last 20 entries
  clipstack history list -n 5 --offset 5
  clipstack history list --favorites    # Show favorites only
  clipstack history list --compact      # Compact single-line format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []*types.ClipItem
			if err := call(cmd.Context(), ipc.CmdList, flags.args(), &items); err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), items, flags.options())
		},
	}

	flags.bind(cmd)
	return cmd
}

// newHistorySearchCmd creates the search subcommand
func newHistorySearchCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search clipboard history",
		Long: `Search clipboard history for a case-insensitive substring. Markup is
matched against its rendered text; images never match.

Examples:
  clipstack history search invoice
  clipstack history search "git push" --compact`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []*types.ClipItem
			query := ipc.SearchArgs{Query: strings.Join(args, " "), ListArgs: flags.args()}
			if err := call(cmd.Context(), ipc.CmdSearch, query, &items); err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), items, flags.options())
		},
	}

	flags.bind(cmd)
	return cmd
}

// newHistoryShowCmd creates the show subcommand
func newHistoryShowCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a history entry",
		Long: `Show a history entry in full.

Examples:
  clipstack history show 42         # Show entry 42
  clipstack history show 42 --raw   # Write the stored payload only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var item types.ClipItem
			if err := call(cmd.Context(), ipc.CmdGet, ipc.IDArgs{ID: id}, &item); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case raw:
				_, err = out.Write(item.Content.Bytes())
				return err
			case useJSON:
				return writeJSON(out, &item)
			}

			opts := displayOptions()
			opts.MaxLines = 0
			opts.MaxWidth = 0
			_, err = fmt.Fprintln(out, format.FormatItem(&item, opts))
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "output raw content without metadata")
	return cmd
}

// newHistoryFavCmd creates the fav subcommand
func newHistoryFavCmd() *cobra.Command {
	var on, off bool

	cmd := &cobra.Command{
		Use:   "fav <id>",
		Short: "Toggle the favorite flag of an entry",
		Long: `Toggle, set or clear the favorite flag of an entry. Favorites can be
listed with 'history list --favorites' and survive retention sweeps by
default.

Examples:
  clipstack history fav 42          # Toggle
  clipstack history fav 42 --off    # Clear`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if on && off {
				return fmt.Errorf("--on and --off are mutually exclusive")
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var res ipc.ToggleData
			if on || off {
				err = call(cmd.Context(), ipc.CmdFavorite, ipc.FavoriteArgs{ID: id, Favorite: on}, &res)
			} else {
				err = call(cmd.Context(), ipc.CmdToggleFavorite, ipc.IDArgs{ID: id}, &res)
			}
			if err != nil {
				return err
			}

			if useJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			state := "no longer a favorite"
			if res.Favorite {
				state = "marked as favorite"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Entry %d %s\n", id, state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&on, "on", false, "mark as favorite")
	cmd.Flags().BoolVar(&off, "off", false, "clear the favorite mark")
	return cmd
}

// newHistoryDeleteCmd creates the delete subcommand
func newHistoryDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete history entries",
		Long: `Delete history entries by id. Ids are never reused.

Examples:
  clipstack history delete 42
  clipstack history delete 40 41 42`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uint64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			for _, id := range ids {
				if err := call(cmd.Context(), ipc.CmdDelete, ipc.IDArgs{ID: id}, nil); err != nil {
					return fmt.Errorf("failed to delete entry %d: %w", id, err)
				}
			}
			if useJSON {
				return writeJSON(cmd.OutOrStdout(), ipc.CountData{Deleted: len(ids)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d entries\n", len(ids))
			return nil
		},
	}
	return cmd
}

// newHistoryClearCmd creates the clear subcommand
func newHistoryClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirm(cmd, "This will permanently delete all clipboard history, favorites included. Continue? (y/N): ") {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled.")
				return nil
			}

			var res ipc.CountData
			if err := call(cmd.Context(), ipc.CmdClear, nil, &res); err != nil {
				return err
			}
			if useJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d entries\n", res.Deleted)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
