package format

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	// Registers the PNG decoder used by image.DecodeConfig.
	_ "image/png"

	"github.com/berrythewa/clipstack/internal/markup"
	"github.com/berrythewa/clipstack/internal/types"
)

// FormatBody renders the full payload of content for display.
func FormatBody(content types.Content, opts Options) string {
	switch c := content.(type) {
	case types.Text:
		return formatText(string(c), opts)
	case types.HTML:
		return formatHTML(c, opts)
	case types.Image:
		return describeImage(c)
	}
	return ""
}

// Preview renders content as a single line of at most maxLen runes.
func Preview(content types.Content, maxLen int) string {
	var s string
	switch c := content.(type) {
	case types.Text:
		s = string(c)
	case types.HTML:
		s = RenderHTML(c)
	case types.Image:
		return describeImage(c)
	}
	s = singleLine(s)
	if s == "" {
		return "(empty)"
	}
	return TruncateText(s, maxLen)
}

func formatText(text string, opts Options) string {
	text = truncateEachLine(TruncateLines(text, opts.MaxLines), opts.MaxWidth)
	if isLink(text) {
		return ColorizeIf(text, Underline+Blue, opts.UseColors)
	}
	return text
}

func isLink(text string) bool {
	return !strings.ContainsAny(text, " \n\t") &&
		(strings.HasPrefix(text, "https://") || strings.HasPrefix(text, "http://"))
}

// formatHTML shows the rendered text of the markup; the raw markup is
// available through --raw.
func formatHTML(h types.HTML, opts Options) string {
	return formatText(RenderHTML(h), opts)
}

// RenderHTML returns the visible text of markup, or the markup itself when it
// cannot be parsed.
func RenderHTML(h types.HTML) string {
	text, err := markup.PlainText(string(h))
	if err != nil || strings.TrimSpace(text) == "" {
		return string(h)
	}
	return text
}

func describeImage(img types.Image) string {
	size := FormatSize(int64(len(img)))
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return fmt.Sprintf("[Image %s]", size)
	}
	return fmt.Sprintf("[%s image %d×%d, %s]", strings.ToUpper(format), cfg.Width, cfg.Height, size)
}
