package clipboard_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/berrythewa/clipstack/internal/clipboard"
	"github.com/berrythewa/clipstack/internal/storage"
	"github.com/berrythewa/clipstack/internal/types"
)

func newHistory(t *testing.T) *storage.History {
	t.Helper()
	b, err := storage.NewBoltBackend(storage.BoltConfig{DBPath: filepath.Join(t.TempDir(), "history.db")})
	require.NoError(t, err)
	h, err := storage.NewHistory(b, storage.HistoryOptions{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestPipelineStoresCanonicalURL(t *testing.T) {
	h := newHistory(t)
	broadcaster := clipboard.NewBroadcaster(4, nil)
	_, events := broadcaster.Subscribe()
	m := clipboard.NewMonitor(clipboard.MonitorOptions{}, nil, h, broadcaster, zaptest.NewLogger(t))

	res := m.Process(clipboard.Snapshot{Text: "https://Example.com."})
	require.Equal(t, clipboard.OutcomeStored, res.Outcome)

	items, err := h.List(storage.ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.Text("https://Example.com"), items[0].Content)
	assert.Equal(t, res.Item.ID, items[0].ID)

	select {
	case got := <-events:
		assert.Equal(t, items[0].ID, got.ID)
	default:
		t.Fatal("stored item was not published")
	}
}

func TestPipelineDeduplicatesAcrossDebounceWindow(t *testing.T) {
	h := newHistory(t)
	m := clipboard.NewMonitor(clipboard.MonitorOptions{DedupeWindow: 0}, nil, h, nil, nil)

	snap := clipboard.Snapshot{HTML: "<p>Hello <b>world</b></p>"}
	assert.Equal(t, clipboard.OutcomeStored, m.Process(snap).Outcome)
	assert.Equal(t, clipboard.OutcomeDebounced, m.Process(snap).Outcome)

	// With the guard out of the way the store still rejects the repeat.
	m2 := clipboard.NewMonitor(clipboard.MonitorOptions{}, nil, h, nil, nil)
	assert.Equal(t, clipboard.OutcomeDuplicate, m2.Process(snap).Outcome)

	items, err := h.List(storage.ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.Text("Hello world"), items[0].Content)
}

func TestPipelineLockedHistoryDropsEvent(t *testing.T) {
	b, err := storage.NewBoltBackend(storage.BoltConfig{DBPath: filepath.Join(t.TempDir(), "history.db")})
	require.NoError(t, err)
	h, err := storage.NewHistory(b, storage.HistoryOptions{Encrypt: true})
	require.NoError(t, err)
	defer h.Close()

	m := clipboard.NewMonitor(clipboard.MonitorOptions{}, nil, h, nil, nil)
	res := m.Process(clipboard.Snapshot{Text: "secret"})
	assert.Equal(t, clipboard.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, storage.ErrLocked)
	assert.Equal(t, uint64(1), m.Stats()["failed"])
}
