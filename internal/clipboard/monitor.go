package clipboard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/types"
)

// Clipboard is a source of clipboard change notifications.
type Clipboard interface {
	// Watch delivers one snapshot per observed change until ctx is done,
	// then closes the channel.
	Watch(ctx context.Context) (<-chan Snapshot, error)
}

//go:generate mockgen -source=monitor.go -destination=mock_monitor_test.go -package=clipboard Store,Publisher

// Store persists classified content. stored is false when the store itself
// rejected the item as a repeat of its most recent record.
type Store interface {
	Insert(content types.Content, createdAt time.Time) (item *types.ClipItem, stored bool, err error)
}

// Publisher receives every newly stored item.
type Publisher interface {
	Publish(item *types.ClipItem)
}

// Outcome is what happened to one snapshot.
type Outcome int

const (
	OutcomeStored Outcome = iota
	OutcomeNoEvent
	OutcomeDebounced
	OutcomeDuplicate
	OutcomePaused
	OutcomeFailed
	numOutcomes
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeNoEvent:
		return "no_event"
	case OutcomeDebounced:
		return "debounced"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomePaused:
		return "paused"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result describes the handling of one snapshot. Item is set only for
// OutcomeStored, Err only for OutcomeFailed.
type Result struct {
	Outcome Outcome
	Item    *types.ClipItem
	Err     error
}

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	DedupeWindow time.Duration
	MaxSizeBytes int64
	Paused       bool
}

// Monitor runs the capture pipeline: classify, debounce, store, publish.
type Monitor struct {
	clipboard  Clipboard
	classifier *Classifier
	guard      *Guard
	store      Store
	publisher  Publisher
	logger     *zap.Logger
	now        func() time.Time

	paused atomic.Bool
	counts [numOutcomes]atomic.Uint64
}

// NewMonitor creates a monitor. source may be nil when snapshots are fed
// through Process directly; publisher may be nil.
func NewMonitor(opts MonitorOptions, source Clipboard, store Store, publisher Publisher, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = NewNoOpPublisher(logger)
	}
	classifier := NewClassifier(logger)
	if opts.MaxSizeBytes != 0 {
		classifier.SetMaxSize(opts.MaxSizeBytes)
	}
	m := &Monitor{
		clipboard:  source,
		classifier: classifier,
		guard:      NewGuard(opts.DedupeWindow),
		store:      store,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
	m.paused.Store(opts.Paused)
	return m
}

// SetPaused turns recording off or back on.
func (m *Monitor) SetPaused(paused bool) {
	if m.paused.Swap(paused) != paused {
		m.logger.Info("Clipboard recording state changed", zap.Bool("paused", paused))
	}
}

// Paused reports whether recording is paused.
func (m *Monitor) Paused() bool {
	return m.paused.Load()
}

// Stats returns how many snapshots ended in each outcome.
func (m *Monitor) Stats() map[string]uint64 {
	stats := make(map[string]uint64, numOutcomes)
	for o := Outcome(0); o < numOutcomes; o++ {
		stats[o.String()] = m.counts[o].Load()
	}
	return stats
}

// echoWindow bounds how long a write of our own is waited for on the watch.
const echoWindow = 5 * time.Second

// IgnoreWrite arms the guard for the change that writing content to the
// clipboard will cause, so restoring an old item does not record it again.
func (m *Monitor) IgnoreWrite(content types.Content) {
	echo, ok := m.classifier.Classify(writtenSnapshot(content))
	if !ok {
		return
	}
	fp, err := Fingerprint(echo)
	if err != nil {
		m.logger.Warn("Failed to fingerprint written content", zap.Error(err))
		return
	}
	m.guard.Expect(fp, echoWindow)
}

// writtenSnapshot is what a source reports after content is written to it.
// Markup goes onto the clipboard as plain text.
func writtenSnapshot(content types.Content) Snapshot {
	if img, ok := content.(types.Image); ok {
		return Snapshot{Image: []byte(img)}
	}
	return Snapshot{Text: string(content.Bytes())}
}

// Run processes snapshots from the clipboard source until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m.clipboard == nil {
		return fmt.Errorf("monitor has no clipboard source")
	}
	changes, err := m.clipboard.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch clipboard: %w", err)
	}
	m.logger.Info("Starting clipboard monitor")
	defer m.logger.Info("Clipboard monitor stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-changes:
			if !ok {
				return nil
			}
			m.Process(snap)
		}
	}
}

// Process runs one snapshot through the pipeline. A storage failure drops
// the event; it is logged and reported but never retried.
func (m *Monitor) Process(snap Snapshot) Result {
	res := m.process(snap)
	m.counts[res.Outcome].Add(1)
	return res
}

func (m *Monitor) process(snap Snapshot) Result {
	if m.paused.Load() {
		return Result{Outcome: OutcomePaused}
	}

	content, ok := m.classifier.Classify(snap)
	if !ok {
		return Result{Outcome: OutcomeNoEvent}
	}

	fp, err := Fingerprint(content)
	if err != nil {
		m.logger.Error("Failed to fingerprint content", zap.Error(err))
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	if !m.guard.Allow(fp) {
		m.logger.Debug("Debounced repeated clipboard event", zap.String("fingerprint", fp))
		return Result{Outcome: OutcomeDebounced}
	}

	item, stored, err := m.store.Insert(content, m.now())
	if err != nil {
		m.logger.Error("Failed to save clipboard content, dropping event",
			zap.Stringer("kind", content.Kind()),
			zap.Error(err))
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	if !stored {
		m.logger.Debug("Store rejected duplicate of most recent item", zap.Stringer("kind", content.Kind()))
		return Result{Outcome: OutcomeDuplicate}
	}

	m.logger.Info("New clipboard content stored",
		zap.Uint64("id", item.ID),
		zap.Stringer("kind", content.Kind()),
		zap.Int("size", len(content.Bytes())))
	m.publisher.Publish(item)
	return Result{Outcome: OutcomeStored, Item: item}
}
