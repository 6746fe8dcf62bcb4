package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/berrythewa/clipstack/internal/ipc"
	"github.com/berrythewa/clipstack/internal/types"
	"github.com/berrythewa/clipstack/pkg/format"
)

// newNotesCmd creates the notes command with all subcommands
func newNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Keep free-form notes next to the clipboard history",
		Long: `Keep free-form notes next to the clipboard history. Notes are stored in
the same database and encrypted under the same setting as clipboard text.`,
	}

	cmd.AddCommand(newNotesAddCmd())
	cmd.AddCommand(newNotesListCmd())
	cmd.AddCommand(newNotesShowCmd())
	cmd.AddCommand(newNotesEditCmd())
	cmd.AddCommand(newNotesDeleteCmd())
	cmd.AddCommand(newNotesClearCmd())

	return cmd
}

// noteText joins args, or reads the command input when the only arg is "-".
func noteText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read note from stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	}
	return strings.Join(args, " "), nil
}

func newNotesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>...",
		Short: "Add a note",
		Long: `Add a note. Use "-" to read the note from stdin.

Examples:
  clipstack notes add call the bank on monday
  echo "multi\nline" | clipstack notes add -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := noteText(cmd, args)
			if err != nil {
				return err
			}
			var note types.Note
			if err := call(cmd.Context(), ipc.CmdNoteAdd, ipc.NoteArgs{Content: text}, &note); err != nil {
				return err
			}
			if useJSON {
				return writeJSON(cmd.OutOrStdout(), note)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Added note %d\n", note.ID)
			return nil
		},
	}
}

func newNotesListCmd() *cobra.Command {
	var (
		limit   int
		offset  int
		compact bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var notes []*types.Note
			if err := call(cmd.Context(), ipc.CmdNoteList, ipc.ListArgs{Limit: limit, Offset: offset}, &notes); err != nil {
				return err
			}
			if useJSON {
				return writeJSON(cmd.OutOrStdout(), notes)
			}
			opts := displayOptions()
			if compact {
				opts.Compact = true
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.New(opts).FormatNoteList(notes))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of notes to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many notes")
	cmd.Flags().BoolVarP(&compact, "compact", "c", false, "use compact single-line format")
	return cmd
}

func newNotesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var note types.Note
			if err := call(cmd.Context(), ipc.CmdNoteGet, ipc.NoteArgs{ID: id}, &note); err != nil {
				return err
			}
			if useJSON {
				return writeJSON(cmd.OutOrStdout(), note)
			}
			opts := displayOptions()
			opts.MaxLines = 0
			opts.MaxWidth = 0
			fmt.Fprintln(cmd.OutOrStdout(), format.New(opts).FormatNote(&note))
			return nil
		},
	}
}

func newNotesEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text>...",
		Short: "Replace the text of a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			text, err := noteText(cmd, args[1:])
			if err != nil {
				return err
			}
			if err := call(cmd.Context(), ipc.CmdNoteUpdate, ipc.NoteArgs{ID: id, Content: text}, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated note %d\n", id)
			return nil
		},
	}
}

func newNotesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := call(cmd.Context(), ipc.CmdNoteDelete, ipc.NoteArgs{ID: id}, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted note %d\n", id)
			return nil
		},
	}
}

func newNotesClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirm(cmd, "This will permanently delete all notes. Continue? (y/N): ") {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled.")
				return nil
			}
			var res ipc.CountData
			if err := call(cmd.Context(), ipc.CmdNoteClear, nil, &res); err != nil {
				return err
			}
			if useJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d notes\n", res.Deleted)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}
