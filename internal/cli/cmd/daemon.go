package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/daemon"
	"github.com/berrythewa/clipstack/internal/ipc"
	"github.com/berrythewa/clipstack/pkg/format"
)

// newDaemonCmd creates the daemon command
func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the clipstack daemon",
		Long: `Manage the clipstack daemon process that records clipboard changes and
serves the history to the CLI over a local socket.

The daemon can be:
  • Started in the foreground or detached in the background
  • Stopped gracefully
  • Checked for status
  • Restarted`,
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())
	cmd.AddCommand(newDaemonRestartCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:         "start",
		Short:       "Start the clipstack daemon",
		Annotations: map[string]string{FullLogging: ""},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetZapLogger()
			if detach {
				pid, err := startDetached(os.Args[1:], logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "clipstack daemon started in background (PID: %d)\n", pid)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := daemon.New(cfg, daemon.Options{Passphrase: Passphrase()}, logger)
			if err != nil {
				return err
			}
			return d.Run(ctx)
		},
	}

	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "run in background")
	return cmd
}

// startDetached re-executes this binary in the background. The child's
// output goes to the configured log file, or next to the database.
func startDetached(args []string, logger *zap.Logger) (int, error) {
	if err := ipc.Call(cfg.IPC.SocketPath, ipc.CmdStatus, nil, nil); err == nil {
		return 0, fmt.Errorf("daemon already running on %s", cfg.IPC.SocketPath)
	}
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = filepath.Join(filepath.Dir(cfg.Storage.DBPath), "clipstack.log")
	}
	return daemon.Detach(executable, args, logFile, logger)
}

// stopDaemon asks the running daemon to exit and waits for its socket to go
// away.
func stopDaemon(timeout time.Duration) error {
	var st ipc.StatusData
	if err := ipc.Call(cfg.IPC.SocketPath, ipc.CmdStatus, nil, &st); err != nil {
		return err
	}
	if err := daemon.Stop(st.PID); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := ipc.Call(cfg.IPC.SocketPath, ipc.CmdStatus, nil, nil); errors.Is(err, ipc.ErrUnavailable) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon (PID %d) did not stop within %s", st.PID, timeout)
}

func newDaemonStopCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the clipstack daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := stopDaemon(timeout); err != nil {
				if errors.Is(err, ipc.ErrUnavailable) {
					return fmt.Errorf("daemon is not running")
				}
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped successfully")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the daemon to exit")
	return cmd
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var st ipc.StatusData
			err := ipc.Call(cfg.IPC.SocketPath, ipc.CmdStatus, nil, &st)
			if errors.Is(err, ipc.ErrUnavailable) {
				if useJSON {
					return writeJSON(out, map[string]bool{"running": false})
				}
				fmt.Fprintln(out, "Status: not running")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to get daemon status: %w", err)
			}

			if useJSON {
				return writeJSON(out, st)
			}
			fmt.Fprintln(out, format.FormatStats("clipstack daemon", statusStats(st), displayOptions()))
			return nil
		},
	}
}

func statusStats(st ipc.StatusData) []format.Stat {
	stats := []format.Stat{
		{Label: "PID", Value: strconv.Itoa(st.PID)},
		{Label: "Started", Value: st.StartedAt},
		{Label: "Storage", Value: st.Driver + " " + st.DBPath},
		{Label: "Encryption", Value: st.State},
		{Label: "Recording", Value: map[bool]string{true: "paused", false: "on"}[st.Paused]},
		{Label: "Items", Value: strconv.Itoa(st.Items)},
		{Label: "Favorites", Value: strconv.Itoa(st.Favorites)},
		{Label: "Subscribers", Value: strconv.Itoa(st.Subscribers)},
	}
	if started, err := time.Parse(time.RFC3339, st.StartedAt); err == nil {
		stats[1].Value = format.FormatRelativeTime(started)
	}

	var outcomes []string
	for _, name := range []string{"stored", "duplicate", "debounced", "no_event", "paused", "failed"} {
		outcomes = append(outcomes, fmt.Sprintf("%s=%d", name, st.Outcomes[name]))
	}
	return append(stats, format.Stat{Label: "Captures", Value: strings.Join(outcomes, " ")})
}

func newDaemonRestartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "restart",
		Short:       "Restart the clipstack daemon in the background",
		Annotations: map[string]string{FullLogging: ""},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetZapLogger()
			if err := stopDaemon(5 * time.Second); err != nil && !errors.Is(err, ipc.ErrUnavailable) {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			pid, err := startDetached(restartArgs(os.Args[1:]), logger)
			if err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon restarted successfully (PID: %d)\n", pid)
			return nil
		},
	}
	return cmd
}

// restartArgs turns "daemon restart [flags]" into "daemon start [flags]".
func restartArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i, arg := range out {
		if arg == "restart" {
			out[i] = "start"
			break
		}
	}
	return out
}
