package housekeeping

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/storage"
)

// DefaultInterval is how often the janitor sweeps when none is configured.
const DefaultInterval = time.Hour

// Sweeper applies a retention policy.
type Sweeper interface {
	Sweep(policy storage.RetentionPolicy) (storage.SweepResult, error)
}

// Janitor runs periodic retention sweeps.
type Janitor struct {
	sweeper  Sweeper
	policy   storage.RetentionPolicy
	interval time.Duration
	logger   *zap.Logger

	// tick is replaced in tests.
	tick func(d time.Duration) (<-chan time.Time, func())
}

// New creates a janitor.
func New(sweeper Sweeper, policy storage.RetentionPolicy, interval time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		sweeper:  sweeper,
		policy:   policy,
		interval: interval,
		logger:   logger,
		tick: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Run sweeps once immediately, then on every tick. Blocks until ctx is
// cancelled and returns nil.
func (j *Janitor) Run(ctx context.Context) error {
	ticks, stop := j.tick(j.interval)
	defer stop()

	j.logger.Info("Retention janitor started",
		zap.Duration("interval", j.interval),
		zap.Duration("max_age", j.policy.MaxAge),
		zap.Int("max_items", j.policy.MaxItems),
		zap.Bool("keep_favorites", j.policy.KeepFavorites))
	j.SweepOnce()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Retention janitor stopped")
			return nil
		case <-ticks:
			j.SweepOnce()
		}
	}
}

// SweepOnce runs one sweep and logs the outcome. Errors are logged only; the
// next tick retries.
func (j *Janitor) SweepOnce() storage.SweepResult {
	res, err := j.sweeper.Sweep(j.policy)
	if err != nil {
		j.logger.Error("Retention sweep failed", zap.Error(err), zap.Int("removed", res.Total()))
		return res
	}
	j.logger.Debug("Retention sweep finished",
		zap.Int("expired", res.Expired),
		zap.Int("trimmed", res.Trimmed))
	return res
}
