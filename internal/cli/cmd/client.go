package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/daemon"
	"github.com/berrythewa/clipstack/internal/ipc"
	"github.com/berrythewa/clipstack/pkg/format"
)

// call sends command to the running daemon. When no daemon listens, the
// request is answered in-process against the history store instead.
func call(ctx context.Context, command string, args, out any) error {
	err := ipc.Call(cfg.IPC.SocketPath, command, args, out)
	if !errors.Is(err, ipc.ErrUnavailable) {
		return err
	}

	logger := GetZapLogger()
	logger.Debug("Daemon not running, opening history directly",
		zap.String("command", command),
		zap.String("db_path", cfg.Storage.DBPath))

	d, err := daemon.New(cfg, daemon.Options{Passphrase: Passphrase(), Offline: true}, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	req, err := ipc.NewRequest(command, args)
	if err != nil {
		return err
	}
	resp := d.Handle(ctx, req)
	if out == nil {
		return resp.Err()
	}
	return resp.Decode(out)
}

// callDaemon is call without the local fallback.
func callDaemon(command string, args, out any) error {
	err := ipc.Call(cfg.IPC.SocketPath, command, args, out)
	if errors.Is(err, ipc.ErrUnavailable) {
		return fmt.Errorf("%s requires a running daemon; start it with 'clipstack daemon start'", command)
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// displayOptions builds formatting options from the global flags.
func displayOptions() format.Options {
	opts := format.DefaultOptions()
	if noColors {
		opts.UseColors = false
		opts.UseIcons = false
	}
	return opts
}
