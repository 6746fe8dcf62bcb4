package clipboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.design/x/clipboard"

	"github.com/berrythewa/clipstack/internal/types"
)

// SystemClipboard watches the OS clipboard through golang.design/x/clipboard.
// That library only knows text and PNG, so markup is read separately from
// wl-paste or xclip when one is installed.
type SystemClipboard struct {
	html   *htmlReader
	logger *zap.Logger
}

// NewSystemClipboard initializes the native clipboard.
func NewSystemClipboard(logger *zap.Logger) (*SystemClipboard, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
	}
	return &SystemClipboard{
		html:   newHTMLReader(logger),
		logger: logger,
	}, nil
}

// Watch implements Clipboard.
func (c *SystemClipboard) Watch(ctx context.Context) (<-chan Snapshot, error) {
	textCh := clipboard.Watch(ctx, clipboard.FmtText)
	imageCh := clipboard.Watch(ctx, clipboard.FmtImage)

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		for {
			var snap Snapshot
			select {
			case <-ctx.Done():
				return
			case data, ok := <-textCh:
				if !ok {
					return
				}
				snap = Snapshot{Text: string(data), Image: clipboard.Read(clipboard.FmtImage)}
			case data, ok := <-imageCh:
				if !ok {
					return
				}
				snap = Snapshot{Image: data, Text: string(clipboard.Read(clipboard.FmtText))}
			}
			snap.HTML = c.html.Read(ctx)

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Write implements Writer. Markup is written as text since the native
// clipboard has no HTML format.
func (c *SystemClipboard) Write(content types.Content) error {
	switch v := content.(type) {
	case types.Image:
		clipboard.Write(clipboard.FmtImage, []byte(v))
	case types.Text, types.HTML:
		clipboard.Write(clipboard.FmtText, v.Bytes())
	default:
		return fmt.Errorf("unsupported content %T", content)
	}
	c.logger.Debug("Wrote content to clipboard", zap.Stringer("kind", content.Kind()))
	return nil
}
