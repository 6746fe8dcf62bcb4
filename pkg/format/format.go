package format

import (
	"fmt"
	"strings"

	"github.com/berrythewa/clipstack/internal/types"
)

// Formatter renders history items and notes for the terminal.
type Formatter struct {
	options Options
}

// New creates a new formatter with the given options
func New(opts Options) *Formatter {
	return &Formatter{options: opts}
}

// NewDefault creates a new formatter with default options
func NewDefault() *Formatter {
	return New(DefaultOptions())
}

// FormatItem formats a single history item.
func (f *Formatter) FormatItem(item *types.ClipItem) string {
	if item == nil || item.Content == nil {
		return ColorizeIf("No content", Gray, f.options.UseColors)
	}

	header := f.formatHeader(item)
	if f.options.Compact {
		width := 50
		if f.options.MaxWidth > 0 {
			width = f.options.MaxWidth
		}
		return header + " " + DimIf(Preview(item.Content, width), f.options.UseColors)
	}

	parts := []string{header}
	if f.options.ShowMetadata {
		parts = append(parts, f.formatMetadata(item))
	}
	if body := FormatBody(item.Content, f.options); body != "" {
		parts = append(parts, CreateBox("Content", body, f.options))
	}
	return strings.Join(parts, "\n")
}

// FormatItemList formats items newest first, as returned by the store.
func (f *Formatter) FormatItemList(items []*types.ClipItem) string {
	if len(items) == 0 {
		return ColorizeIf("No clipboard history", Gray, f.options.UseColors)
	}

	title := fmt.Sprintf("Clipboard History (%d entries)", len(items))
	if f.options.UseIcons {
		title = "📋 " + title
	}
	parts := []string{ColorizeIf(title, BrightBlue, f.options.UseColors), ""}
	for i, item := range items {
		parts = append(parts, f.FormatItem(item))
		if !f.options.Compact && i < len(items)-1 {
			parts = append(parts, CreateSeparator(f.options))
		}
	}
	return strings.Join(parts, "\n")
}

// formatHeader renders "icon kind #id ★".
func (f *Formatter) formatHeader(item *types.ClipItem) string {
	var parts []string
	kind := item.Kind()
	if f.options.UseIcons {
		if icon, ok := KindIcons[kind]; ok {
			parts = append(parts, icon)
		}
	}
	parts = append(parts, ColorizeIf(kind.String(), KindColors[kind], f.options.UseColors))
	parts = append(parts, BoldIf(fmt.Sprintf("#%d", item.ID), f.options.UseColors))
	if item.Favorite {
		parts = append(parts, ColorizeIf(FavoriteMark, BrightYellow, f.options.UseColors))
	}
	return strings.Join(parts, " ")
}

func (f *Formatter) formatMetadata(item *types.ClipItem) string {
	parts := []string{
		"Created: " + FormatRelativeTime(item.CreatedAt),
		"Size: " + FormatSize(int64(len(item.Content.Bytes()))),
	}
	return DimIf(strings.Join(parts, " • "), f.options.UseColors)
}

// FormatNote formats a single note.
func (f *Formatter) FormatNote(note *types.Note) string {
	if note == nil {
		return ColorizeIf("No note", Gray, f.options.UseColors)
	}
	header := BoldIf(fmt.Sprintf("note #%d", note.ID), f.options.UseColors)
	if f.options.UseIcons {
		header = "🗒️ " + header
	}
	if f.options.Compact {
		return header + " " + DimIf(Preview(types.Text(note.Content), 50), f.options.UseColors)
	}
	parts := []string{header}
	if f.options.ShowMetadata {
		parts = append(parts, DimIf("Created: "+FormatRelativeTime(note.CreatedAt), f.options.UseColors))
	}
	parts = append(parts, IndentText(formatText(note.Content, f.options), "  "))
	return strings.Join(parts, "\n")
}

// FormatNoteList formats notes newest first.
func (f *Formatter) FormatNoteList(notes []*types.Note) string {
	if len(notes) == 0 {
		return ColorizeIf("No notes", Gray, f.options.UseColors)
	}
	parts := make([]string, 0, len(notes))
	for _, note := range notes {
		parts = append(parts, f.FormatNote(note))
	}
	sep := "\n"
	if !f.options.Compact {
		sep = "\n" + CreateSeparator(f.options) + "\n"
	}
	return strings.Join(parts, sep)
}

// FormatStats renders labelled values under a title.
func (f *Formatter) FormatStats(title string, stats []Stat) string {
	return FormatStats(title, stats, f.options)
}

// FormatItem formats a single item with the given options.
func FormatItem(item *types.ClipItem, opts Options) string {
	return New(opts).FormatItem(item)
}

// FormatItemList formats items with the given options.
func FormatItemList(items []*types.ClipItem, opts Options) string {
	return New(opts).FormatItemList(items)
}
