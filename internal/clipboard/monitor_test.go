package clipboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/berrythewa/clipstack/internal/types"
)

// fakeStore mimics the adjacency check of the real store.
type fakeStore struct {
	mu    sync.Mutex
	items []*types.ClipItem
	err   error
}

func (s *fakeStore) Insert(content types.Content, createdAt time.Time) (*types.ClipItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, false, s.err
	}
	if n := len(s.items); n > 0 && types.SameContent(s.items[n-1].Content, content) {
		return nil, false, nil
	}
	item := &types.ClipItem{ID: uint64(len(s.items) + 1), CreatedAt: createdAt, Content: content}
	s.items = append(s.items, item)
	return item, true, nil
}

func (s *fakeStore) contents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Kind().Tag()+string(item.Content.Bytes()))
	}
	return out
}

type recordingPublisher struct {
	mu    sync.Mutex
	items []*types.ClipItem
}

func (p *recordingPublisher) Publish(item *types.ClipItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, item)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// chanClipboard replays snapshots pushed into its channel.
type chanClipboard struct {
	ch chan Snapshot
}

func (c *chanClipboard) Watch(ctx context.Context) (<-chan Snapshot, error) {
	return c.ch, nil
}

func newTestMonitor(store Store, pub Publisher) (*Monitor, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	m := NewMonitor(MonitorOptions{}, nil, store, pub, nil)
	m.now = clock.Now
	m.guard.now = clock.Now
	return m, clock
}

func TestMonitorProcess(t *testing.T) {
	store := &fakeStore{}
	pub := &recordingPublisher{}
	m, clock := newTestMonitor(store, pub)

	steps := []struct {
		snap    Snapshot
		advance time.Duration
		want    Outcome
	}{
		{Snapshot{Text: "first"}, 0, OutcomeStored},
		{Snapshot{Text: "first"}, 100 * time.Millisecond, OutcomeDebounced},
		{Snapshot{Text: "first"}, 2 * time.Second, OutcomeDuplicate},
		{Snapshot{}, 0, OutcomeNoEvent},
		{Snapshot{Text: "second"}, 0, OutcomeStored},
		{Snapshot{Text: "first"}, 10 * time.Millisecond, OutcomeStored},
		{Snapshot{HTML: "<b>first</b>"}, 10 * time.Millisecond, OutcomeDebounced},
	}
	for i, step := range steps {
		clock.Advance(step.advance)
		res := m.Process(step.snap)
		assert.Equalf(t, step.want, res.Outcome, "step %d", i)
		if step.want == OutcomeStored {
			require.NotNil(t, res.Item)
			assert.Equal(t, clock.Now(), res.Item.CreatedAt)
		} else {
			assert.Nil(t, res.Item)
		}
	}

	want := []string{"T:first", "T:second", "T:first"}
	if diff := cmp.Diff(want, store.contents()); diff != "" {
		t.Errorf("stored items mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, pub.count())

	stats := m.Stats()
	assert.Equal(t, uint64(3), stats["stored"])
	assert.Equal(t, uint64(2), stats["debounced"])
	assert.Equal(t, uint64(1), stats["duplicate"])
	assert.Equal(t, uint64(1), stats["no_event"])
}

func TestMonitorPaused(t *testing.T) {
	store := &fakeStore{}
	m, _ := newTestMonitor(store, nil)

	m.SetPaused(true)
	assert.True(t, m.Paused())
	assert.Equal(t, OutcomePaused, m.Process(Snapshot{Text: "secret"}).Outcome)

	m.SetPaused(false)
	assert.Equal(t, OutcomeStored, m.Process(Snapshot{Text: "secret"}).Outcome)
	assert.Len(t, store.contents(), 1)
}

func TestMonitorStoreFailureDropsEvent(t *testing.T) {
	boom := errors.New("disk full")
	store := &fakeStore{err: boom}
	pub := &recordingPublisher{}
	m, _ := newTestMonitor(store, pub)

	res := m.Process(Snapshot{Text: "lost"})
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, boom)
	assert.Zero(t, pub.count())
}

func TestMonitorRun(t *testing.T) {
	store := &fakeStore{}
	pub := &recordingPublisher{}
	src := &chanClipboard{ch: make(chan Snapshot)}
	m := NewMonitor(MonitorOptions{DedupeWindow: time.Hour}, src, store, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	src.ch <- Snapshot{Text: "a"}
	src.ch <- Snapshot{Text: "a"}
	src.ch <- Snapshot{Text: "b"}

	require.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
	assert.Equal(t, []string{"T:a", "T:b"}, store.contents())
}

func TestMonitorRunWithoutSource(t *testing.T) {
	m := NewMonitor(MonitorOptions{}, nil, &fakeStore{}, nil, nil)
	assert.Error(t, m.Run(context.Background()))
}

func TestMonitorIgnoreWrite(t *testing.T) {
	store := &fakeStore{}
	m, clock := newTestMonitor(store, nil)

	for _, s := range []string{"old", "new"} {
		clock.Advance(time.Second)
		require.Equal(t, OutcomeStored, m.Process(Snapshot{Text: s}).Outcome)
	}

	// Restoring an old item comes back through the watch as a plain change.
	m.IgnoreWrite(types.Text("old"))
	clock.Advance(2 * time.Second)
	assert.Equal(t, OutcomeDebounced, m.Process(Snapshot{Text: "old"}).Outcome)

	// Markup is written as text and echoes as such.
	m.IgnoreWrite(types.HTML("<b>rich</b>"))
	clock.Advance(2 * time.Second)
	assert.Equal(t, OutcomeDebounced, m.Process(Snapshot{Text: "<b>rich</b>"}).Outcome)

	clock.Advance(2 * time.Second)
	assert.Equal(t, OutcomeStored, m.Process(Snapshot{Text: "old"}).Outcome, "a later copy by the user is recorded")

	if diff := cmp.Diff([]string{"T:old", "T:new", "T:old"}, store.contents()); diff != "" {
		t.Errorf("stored contents mismatch (-want +got):\n%s", diff)
	}
}

func TestMonitorStoreAndPublish(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	pub := NewMockPublisher(ctrl)
	m, clock := newTestMonitor(store, pub)

	item := &types.ClipItem{ID: 7, CreatedAt: clock.Now(), Content: types.Text("hello")}
	storageErr := errors.New("disk full")
	gomock.InOrder(
		store.EXPECT().Insert(types.Text("hello"), clock.Now()).Return(item, true, nil),
		pub.EXPECT().Publish(item),
		store.EXPECT().Insert(types.Text("again"), gomock.Any()).Return(nil, false, storageErr),
		store.EXPECT().Insert(types.Text("repeat"), gomock.Any()).Return(nil, false, nil),
	)

	res := m.Process(Snapshot{Text: "  hello  "})
	assert.Equal(t, OutcomeStored, res.Outcome)
	assert.Same(t, item, res.Item)

	clock.Advance(time.Second)
	res = m.Process(Snapshot{Text: "again"})
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, storageErr)

	clock.Advance(time.Second)
	assert.Equal(t, OutcomeDuplicate, m.Process(Snapshot{Text: "repeat"}).Outcome)

	// Paused and empty snapshots never reach the store.
	assert.Equal(t, OutcomeNoEvent, m.Process(Snapshot{Text: "\u200b"}).Outcome)
	m.SetPaused(true)
	assert.Equal(t, OutcomePaused, m.Process(Snapshot{Text: "hidden"}).Outcome)
}
