package clipboard

import (
	"context"
	"fmt"
	"time"

	atottoClip "github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/types"
)

// DefaultPollInterval is how often PollingClipboard reads the clipboard.
const DefaultPollInterval = 500 * time.Millisecond

// PollingClipboard is a fallback clipboard implementation using the
// atotto/clipboard library. It only supports text content.
type PollingClipboard struct {
	interval time.Duration
	logger   *zap.Logger
	readAll  func() (string, error)
}

// NewPollingClipboard returns a text-only polling clipboard.
func NewPollingClipboard(interval time.Duration, logger *zap.Logger) *PollingClipboard {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PollingClipboard{
		interval: interval,
		logger:   logger,
		readAll:  atottoClip.ReadAll,
	}
}

// Watch implements Clipboard. The content present when watching starts is
// taken as the baseline and not reported.
func (c *PollingClipboard) Watch(ctx context.Context) (<-chan Snapshot, error) {
	last, err := c.readAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read clipboard: %w", err)
	}

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			text, err := c.readAll()
			if err != nil {
				c.logger.Debug("Error reading clipboard", zap.Error(err))
				continue
			}
			if text == last {
				continue
			}
			last = text

			select {
			case out <- Snapshot{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Write implements Writer.
func (c *PollingClipboard) Write(content types.Content) error {
	if content.Kind() == types.KindImage {
		return fmt.Errorf("only text content is supported for writing")
	}
	return atottoClip.WriteAll(string(content.Bytes()))
}
