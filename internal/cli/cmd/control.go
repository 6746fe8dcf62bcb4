package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/berrythewa/clipstack/internal/ipc"
	"github.com/berrythewa/clipstack/internal/types"
	"github.com/berrythewa/clipstack/pkg/format"
)

// newCopyCmd creates the copy command
func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Put a history entry back on the clipboard",
		Long: `Put a history entry back on the system clipboard. The daemon owns the
clipboard, so this requires a running daemon. Encrypted entries that cannot
be decrypted are refused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := callDaemon(ipc.CmdCopy, ipc.IDArgs{ID: id}, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Copied entry %d to the clipboard\n", id)
			return nil
		},
	}
}

// newPauseCmd creates the pause and resume commands
func newPauseCmd(paused bool) *cobra.Command {
	use, short, done := "pause", "Stop recording clipboard changes", "paused"
	if !paused {
		use, short, done = "resume", "Resume recording clipboard changes", "resumed"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := callDaemon(ipc.CmdPause, ipc.PauseArgs{Paused: paused}, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Recording %s\n", done)
			return nil
		},
	}
}

// newUnlockCmd creates the unlock command
func newUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Give the running daemon the encryption passphrase",
		Long: `Give the running daemon the encryption passphrase for this session. The
passphrase is taken from --passphrase, $CLIPSTACK_PASSPHRASE, or read from
stdin. It is never written to disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pass := Passphrase()
			if pass == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Passphrase: ")
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				pass = strings.TrimRight(line, "\r\n")
			}
			if err := callDaemon(ipc.CmdUnlock, ipc.UnlockArgs{Passphrase: pass}, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ History unlocked")
			return nil
		},
	}
}

// newWatchCmd creates the watch command
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print entries as the daemon stores them",
		Long: `Print every entry as the daemon stores it, until interrupted. With
--json each entry is written as one JSON line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watch(ctx, cmd)
		},
	}
}

func watch(ctx context.Context, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	opts := displayOptions()
	opts.Compact = true
	err := ipc.Subscribe(ctx, cfg.IPC.SocketPath, func(item *types.ClipItem) error {
		if useJSON {
			b, err := item.MarshalJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(b))
			return err
		}
		_, err := fmt.Fprintln(out, format.FormatItem(item, opts))
		return err
	})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
