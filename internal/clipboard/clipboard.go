package clipboard

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/types"
)

// Source names accepted by NewSource.
const (
	SourceAuto   = "auto"
	SourceNative = "native"
	SourcePoll   = "poll"
)

// Writer puts stored content back on the clipboard.
type Writer interface {
	Write(content types.Content) error
}

// Source is a clipboard that can be watched and written.
type Source interface {
	Clipboard
	Writer
}

// NewSource returns the clipboard implementation named by kind. With
// SourceAuto the native clipboard is tried first and polling is used when it
// cannot be initialized (no display, built without cgo).
func NewSource(kind string, pollInterval time.Duration, logger *zap.Logger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch kind {
	case SourceNative:
		return NewSystemClipboard(logger)
	case SourcePoll:
		return NewPollingClipboard(pollInterval, logger), nil
	case SourceAuto, "":
		sys, err := NewSystemClipboard(logger)
		if err == nil {
			return sys, nil
		}
		logger.Warn("Native clipboard unavailable, falling back to polling", zap.Error(err))
		return NewPollingClipboard(pollInterval, logger), nil
	}
	return nil, fmt.Errorf("unknown clipboard source %q", kind)
}
