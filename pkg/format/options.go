package format

import "github.com/berrythewa/clipstack/internal/types"

// Options controls formatting behavior
type Options struct {
	UseColors    bool
	UseIcons     bool
	MaxWidth     int  // Max line width (0 = no limit)
	MaxLines     int  // Max content lines (0 = no limit)
	ShowMetadata bool // Show age and size
	Compact      bool // One line per item
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		UseColors:    true,
		UseIcons:     true,
		MaxWidth:     80,
		MaxLines:     10,
		ShowMetadata: true,
	}
}

// CompactOptions returns options for compact single-line display
func CompactOptions() Options {
	opts := DefaultOptions()
	opts.Compact = true
	opts.ShowMetadata = false
	opts.MaxLines = 1
	return opts
}

// PlainOptions disables colors and icons, for pipes and tests.
func PlainOptions() Options {
	opts := DefaultOptions()
	opts.UseColors = false
	opts.UseIcons = false
	return opts
}

// KindIcons maps content kinds to Unicode icons
var KindIcons = map[types.Kind]string{
	types.KindText:  "📝",
	types.KindImage: "🖼️",
	types.KindHTML:  "🌐",
}

// KindColors maps content kinds to colors
var KindColors = map[types.Kind]string{
	types.KindText:  Cyan,
	types.KindImage: Magenta,
	types.KindHTML:  Green,
}

// FavoriteMark flags favorite items in listings.
const FavoriteMark = "★"
