package clipboard

import (
	"fmt"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/berrythewa/clipstack/internal/types"
)

// DefaultDedupeWindow is how long a repeated fingerprint is ignored.
const DefaultDedupeWindow = 1200 * time.Millisecond

// Fingerprint returns a content address for c, prefixed with its kind tag so
// equal bytes under different kinds never collide.
func Fingerprint(c types.Content) (string, error) {
	h, err := multihash.Sum(c.Bytes(), multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("failed to create multihash: %w", err)
	}
	return c.Kind().Tag() + cid.NewCidV1(cid.Raw, h).String(), nil
}

// Guard drops an event that repeats the previous fingerprint within the
// window. It remembers only the last fingerprint seen.
type Guard struct {
	mu     sync.Mutex
	window time.Duration
	last   string
	lastAt time.Time
	now    func() time.Time

	// expected is dropped once if it shows up before expectedUntil.
	expected      string
	expectedUntil time.Time
}

// NewGuard creates a guard; a non-positive window uses DefaultDedupeWindow.
func NewGuard(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultDedupeWindow
	}
	return &Guard{window: window, now: time.Now}
}

// Allow reports whether fp should pass. A passing fingerprint replaces the
// remembered one whether or not the item is stored afterwards.
func (g *Guard) Allow(fp string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if fp == g.expected && now.Before(g.expectedUntil) {
		g.expected = ""
		g.last = fp
		g.lastAt = now
		return false
	}
	if fp == g.last && now.Sub(g.lastAt) < g.window {
		return false
	}
	g.last = fp
	g.lastAt = now
	return true
}

// Expect makes the next Allow(fp) within d return false. Only one
// fingerprint is expected at a time.
func (g *Guard) Expect(fp string, d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expected = fp
	g.expectedUntil = g.now().Add(d)
}

// Reset forgets the remembered and the expected fingerprint.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = ""
	g.lastAt = time.Time{}
	g.expected = ""
	g.expectedUntil = time.Time{}
}
