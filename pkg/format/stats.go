package format

import (
	"fmt"
	"strings"
)

// Stat is one labelled value in a statistics block.
type Stat struct {
	Label string
	Value string
}

// FormatStats renders stats in order under a title.
func FormatStats(title string, stats []Stat, opts Options) string {
	if opts.UseIcons {
		title = "📊 " + title
	}
	parts := []string{ColorizeIf(title, BrightBlue, opts.UseColors), ""}

	width := 0
	for _, s := range stats {
		if len(s.Label) > width {
			width = len(s.Label)
		}
	}
	for _, s := range stats {
		label := fmt.Sprintf("%-*s", width+1, s.Label+":")
		parts = append(parts, "  "+ColorizeIf(label, BrightCyan, opts.UseColors)+" "+s.Value)
	}
	return strings.Join(parts, "\n")
}
