package clipboard

import (
	"bytes"
	"image"
	"image/png"
	"strings"

	// Decoders for formats a clipboard may hand over besides PNG.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/markup"
	"github.com/berrythewa/clipstack/internal/types"
)

// Snapshot is what a clipboard source exposes for a single change. A
// representation is present when its field is non-empty.
type Snapshot struct {
	Image []byte
	HTML  string
	Text  string
}

// Empty reports whether the snapshot carries no representation at all.
func (s Snapshot) Empty() bool {
	return len(s.Image) == 0 && s.HTML == "" && s.Text == ""
}

// DefaultMaxSizeBytes bounds the payload size of a single classified item.
const DefaultMaxSizeBytes int64 = 100 * 1024 * 1024

// Classifier turns a snapshot into the one piece of content worth storing.
type Classifier struct {
	logger       *zap.Logger
	MaxSizeBytes int64
}

// NewClassifier creates a classifier with the default size limit.
func NewClassifier(logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		logger:       logger,
		MaxSizeBytes: DefaultMaxSizeBytes,
	}
}

// SetMaxSize sets the maximum payload size in bytes; zero or less disables the check.
func (c *Classifier) SetMaxSize(maxSizeBytes int64) {
	c.MaxSizeBytes = maxSizeBytes
}

// Classify picks a single content value for snap. The second result is false
// when nothing qualifies. Malformed image or markup data never produces an
// error; classification moves on to the next applicable rule instead.
func (c *Classifier) Classify(snap Snapshot) (types.Content, bool) {
	content, ok := c.classify(snap)
	if !ok {
		return nil, false
	}
	if size := int64(len(content.Bytes())); c.MaxSizeBytes > 0 && size > c.MaxSizeBytes {
		c.logger.Debug("Content exceeds maximum size",
			zap.Int64("max_size_bytes", c.MaxSizeBytes),
			zap.Int64("content_size_bytes", size),
			zap.Stringer("kind", content.Kind()))
		return nil, false
	}
	return content, true
}

func (c *Classifier) classify(snap Snapshot) (types.Content, bool) {
	hasHTML := strings.TrimSpace(snap.HTML) != ""

	// Image only when no markup came with it; image plus markup is a rich copy.
	if len(snap.Image) > 0 && !hasHTML {
		encoded, err := encodePNG(snap.Image)
		if err == nil {
			return types.Image(encoded), true
		}
		c.logger.Debug("Undecodable image data, falling back", zap.Error(err), zap.Int("size", len(snap.Image)))
	}

	text := markup.StripInvisible(snap.Text)

	if candidate := urlCandidate(snap.HTML, text); candidate != "" {
		return types.Text(CanonicalizeURL(candidate)), true
	}

	if hasHTML {
		plain, err := markup.PlainText(snap.HTML)
		if err != nil {
			c.logger.Debug("Failed to render markup", zap.Error(err))
		} else if plain != "" && (text == "" || plain == text) {
			return types.Text(plain), true
		}
		return types.HTML(snap.HTML), true
	}

	if text != "" {
		return types.Text(text), true
	}
	return nil, false
}

// urlCandidate returns the link a copy should be stored as, or "".
func urlCandidate(html, text string) string {
	if html != "" {
		if href, ok := markup.FirstHref(html); ok && LooksLikeURL(href) {
			return href
		}
	}
	if text != "" && LooksLikeURL(text) {
		return text
	}
	return ""
}

// encodePNG decodes any registered image format and re-encodes it as PNG so
// the same picture always yields the same bytes.
func encodePNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
