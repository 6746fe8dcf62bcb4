package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/berrythewa/clipstack/internal/clipboard"
	"github.com/berrythewa/clipstack/internal/config"
	"github.com/berrythewa/clipstack/internal/housekeeping"
	"github.com/berrythewa/clipstack/internal/ipc"
	"github.com/berrythewa/clipstack/internal/storage"
)

// Options carries what is not part of the config file.
type Options struct {
	// Passphrase unlocks an encrypted history at startup. Never persisted.
	Passphrase string
	// Source overrides the clipboard named in the config.
	Source clipboard.Source
	// Offline builds a daemon that only answers requests in-process through
	// Handle: no clipboard, no janitor, no socket. The CLI uses it when no
	// daemon is running.
	Offline bool
}

// Daemon wires the capture pipeline, the history store, retention and the
// IPC server together.
type Daemon struct {
	cfg       *config.Config
	logger    *zap.Logger
	history   *storage.History
	source    clipboard.Source
	events    *clipboard.Broadcaster
	monitor   *clipboard.Monitor
	janitor   *housekeeping.Janitor
	server    *ipc.Server
	offline   bool
	startedAt time.Time

	closeOnce sync.Once
	closeErr  error
}

// Policy converts the retention config into a sweep policy.
func Policy(cfg config.RetentionConfig) storage.RetentionPolicy {
	return storage.RetentionPolicy{
		MaxAge:        cfg.MaxAge(),
		KeepFavorites: cfg.KeepFavorites,
		MaxItems:      cfg.MaxItems,
	}
}

// New opens the history and builds every component. The caller must call Run
// or Close.
func New(cfg *config.Config, opts Options, logger *zap.Logger) (*Daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	history, err := storage.OpenHistory(cfg.Storage.Driver, cfg.Storage.DBPath, storage.HistoryOptions{
		Encrypt:    cfg.Encryption.Enabled,
		Passphrase: opts.Passphrase,
		Logger:     logger.Named("storage"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if history.State() == storage.StateLocked {
		logger.Warn("History is encrypted and locked; new clipboard content is dropped until it is unlocked")
	}

	source := opts.Source
	if source == nil && !opts.Offline {
		source, err = clipboard.NewSource(cfg.Capture.Source, cfg.Capture.PollInterval(), logger.Named("clipboard"))
		if err != nil {
			history.Close()
			return nil, fmt.Errorf("failed to open clipboard: %w", err)
		}
	}

	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		history:   history,
		source:    source,
		events:    clipboard.NewBroadcaster(0, logger.Named("events")),
		offline:   opts.Offline,
		startedAt: time.Now(),
	}
	d.monitor = clipboard.NewMonitor(clipboard.MonitorOptions{
		DedupeWindow: cfg.Capture.DedupeWindow(),
		MaxSizeBytes: cfg.Capture.MaxItemBytes,
		Paused:       cfg.Capture.Paused,
	}, source, history, d.events, logger.Named("monitor"))

	if opts.Offline {
		return d, nil
	}
	if cfg.Retention.Enabled {
		d.janitor = housekeeping.New(history, Policy(cfg.Retention), cfg.Retention.SweepInterval(), logger.Named("janitor"))
	}

	d.server = ipc.NewServer(cfg.IPC.SocketPath, d.handle, logger.Named("ipc"))
	d.server.HandleStream(ipc.CmdSubscribe, d.subscribe)
	return d, nil
}

// Run blocks until ctx is cancelled or a component fails, then closes the
// history.
func (d *Daemon) Run(ctx context.Context) error {
	if d.offline {
		return errors.New("an offline daemon cannot be run")
	}
	defer d.Close()

	d.logger.Info("Starting clipstack daemon",
		zap.String("driver", d.cfg.Storage.Driver),
		zap.String("db_path", d.cfg.Storage.DBPath),
		zap.Stringer("state", d.history.State()),
		zap.Bool("retention", d.janitor != nil))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.monitor.Run(ctx) })
	g.Go(func() error { return d.server.ListenAndServe(ctx) })
	if d.janitor != nil {
		g.Go(func() error { return d.janitor.Run(ctx) })
	}

	err := g.Wait()
	if err != nil {
		d.logger.Error("Daemon stopped with error", zap.Error(err))
		return err
	}
	d.logger.Info("Daemon stopped")
	return nil
}

// Handle answers one request in-process, exactly as the socket server would.
func (d *Daemon) Handle(ctx context.Context, req *ipc.Request) *ipc.Response {
	return d.handle(ctx, req)
}

// Close releases the history and drops all subscribers. It is safe to call
// more than once.
func (d *Daemon) Close() error {
	d.closeOnce.Do(func() {
		d.events.Close()
		d.closeErr = d.history.Close()
	})
	return d.closeErr
}
