package clipboard

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/berrythewa/clipstack/internal/markup"
)

// urlShape is deliberately strict about what counts as a bare domain so that
// ordinary sentences are not mistaken for links.
var urlShape = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?[\w\-.]+\.[a-z]{2,}(?:[/?#]\S*)?$`)

const trailingArtifacts = ".,;)"

// LooksLikeURL reports whether s is a single URL-shaped token.
func LooksLikeURL(s string) bool {
	s = markup.StripInvisible(s)
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	s = strings.TrimRight(s, trailingArtifacts)
	return urlShape.MatchString(s)
}

// CanonicalizeURL rewrites a URL-shaped string into its stored form: entities
// decoded, trailing punctuation removed and the scheme forced to https.
// Host and path case are kept. Applying it twice yields the same result.
func CanonicalizeURL(s string) string {
	s = markup.StripInvisible(s)
	// Decoding can expose another entity and trimming can cut one short, so
	// both repeat until nothing changes.
	for {
		next := strings.TrimRightFunc(markup.Unescape(s), func(r rune) bool {
			return unicode.IsSpace(r) || strings.ContainsRune(trailingArtifacts, r)
		})
		next = strings.TrimSpace(next)
		if next == s {
			break
		}
		s = next
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "https://"):
		return "https://" + s[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		return "https://" + s[len("http://"):]
	default:
		return "https://" + strings.TrimLeft(s, "/")
	}
}
