package clipboard

import (
	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/types"
)

// NoOpPublisher implements Publisher but does nothing.
// It's used when nobody listens for new items.
type NoOpPublisher struct {
	logger *zap.Logger
}

// NewNoOpPublisher creates a new NoOpPublisher instance
func NewNoOpPublisher(logger *zap.Logger) *NoOpPublisher {
	return &NoOpPublisher{
		logger: logger,
	}
}

// Publish logs the item and drops it.
func (p *NoOpPublisher) Publish(item *types.ClipItem) {
	if p.logger != nil {
		p.logger.Debug("NoOpPublisher: item publishing skipped",
			zap.Uint64("id", item.ID),
			zap.Stringer("kind", item.Kind()))
	}
}
