package clipboard

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/types"
)

// DefaultSubscriberBuffer is the per-subscriber queue length.
const DefaultSubscriberBuffer = 16

// Broadcaster fans stored items out to any number of subscribers. A
// subscriber whose queue is full misses the item; the pipeline never waits.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]chan *types.ClipItem
	buffer int
	closed bool
	logger *zap.Logger
}

// NewBroadcaster creates a broadcaster; buffer <= 0 uses DefaultSubscriberBuffer.
func NewBroadcaster(buffer int, logger *zap.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		subs:   make(map[uuid.UUID]chan *types.ClipItem),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new subscriber. The channel is closed by
// Unsubscribe or Close.
func (b *Broadcaster) Subscribe() (uuid.UUID, <-chan *types.ClipItem) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New()
	ch := make(chan *types.ClipItem, b.buffer)
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subs[id] = ch
	b.logger.Debug("Subscriber added", zap.String("subscriber", id.String()))
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
		b.logger.Debug("Subscriber removed", zap.String("subscriber", id.String()))
	}
}

// Publish implements Publisher.
func (b *Broadcaster) Publish(item *types.ClipItem) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- item:
		default:
			b.logger.Warn("Subscriber queue full, dropping item",
				zap.String("subscriber", id.String()),
				zap.Uint64("id", item.ID))
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later subscriptions receive a
// closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.closed = true
}
