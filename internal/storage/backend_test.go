package storage

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrythewa/clipstack/internal/types"
)

type backendFactory func(t *testing.T) Backend

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"bolt": func(t *testing.T) Backend {
			b, err := NewBoltBackend(BoltConfig{DBPath: filepath.Join(t.TempDir(), "history.db"), BatchSize: 2})
			require.NoError(t, err)
			t.Cleanup(func() { b.Close() })
			return b
		},
		"sqlite": func(t *testing.T) Backend {
			b, err := NewSQLiteBackend(SQLiteConfig{DBPath: filepath.Join(t.TempDir(), "history.sqlite")})
			require.NoError(t, err)
			t.Cleanup(func() { b.Close() })
			return b
		},
	}
}

// forEachBackend runs fn against every backend implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, b Backend)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func textRecord(text string, at time.Time) *Record {
	return &Record{CreatedAt: at, Kind: types.KindText, Text: text}
}

func appendAll(t *testing.T, b Backend, recs ...*Record) []uint64 {
	t.Helper()
	ids := make([]uint64, 0, len(recs))
	for _, rec := range recs {
		stored, err := b.Append(rec, nil)
		require.NoError(t, err)
		require.True(t, stored)
		ids = append(ids, rec.ID)
	}
	return ids
}

func recordTexts(recs []*Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Text)
	}
	return out
}

func TestBackendAppendAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		img := &Record{CreatedAt: epoch, Kind: types.KindImage, Image: []byte{0x89, 'P', 'N', 'G', 0}}
		html := &Record{CreatedAt: epoch.Add(time.Second), Kind: types.KindHTML, HTML: "<b>x</b>", Favorite: true}
		text := &Record{CreatedAt: epoch.Add(2 * time.Second), Kind: types.KindText, Text: "c2VhbGVk", Encrypted: true}
		ids := appendAll(t, b, img, html, text)
		assert.True(t, ids[0] < ids[1] && ids[1] < ids[2], "ids follow insertion order")

		got, err := b.Get(ids[0])
		require.NoError(t, err)
		assert.Equal(t, types.KindImage, got.Kind)
		assert.Equal(t, img.Image, got.Image)
		assert.True(t, got.CreatedAt.Equal(epoch))

		got, err = b.Get(ids[1])
		require.NoError(t, err)
		assert.Equal(t, "<b>x</b>", got.HTML)
		assert.True(t, got.Favorite)

		got, err = b.Get(ids[2])
		require.NoError(t, err)
		assert.True(t, got.Encrypted)
		assert.Equal(t, "c2VhbGVk", got.Text)

		_, err = b.Get(9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBackendAppendSkip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		called := false
		stored, err := b.Append(textRecord("a", epoch), func(*Record) bool {
			called = true
			return true
		})
		require.NoError(t, err)
		assert.True(t, stored)
		assert.False(t, called, "skip is not consulted on an empty store")

		var seen *Record
		rec := textRecord("b", epoch)
		stored, err = b.Append(rec, func(last *Record) bool {
			seen = last
			return true
		})
		require.NoError(t, err)
		assert.False(t, stored)
		assert.Zero(t, rec.ID)
		require.NotNil(t, seen)
		assert.Equal(t, "a", seen.Text)

		n, err := b.Count(false)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestBackendListPaging(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		for i, s := range []string{"one", "two", "three", "four", "five"} {
			rec := textRecord(s, epoch.Add(time.Duration(i)*time.Minute))
			rec.Favorite = i%2 == 0
			appendAll(t, b, rec)
		}

		all, err := b.List(ListOptions{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"five", "four"}, recordTexts(all))

		page, err := b.List(ListOptions{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"three", "two"}, recordTexts(page))

		favs, err := b.List(ListOptions{FavoritesOnly: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"five", "three", "one"}, recordTexts(favs))

		favPage, err := b.List(ListOptions{FavoritesOnly: true, Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"three"}, recordTexts(favPage))

		n, err := b.Count(true)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}

func TestBackendFavorites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ids := appendAll(t, b, textRecord("a", epoch))
		before, err := b.Get(ids[0])
		require.NoError(t, err)

		require.NoError(t, b.SetFavorite(ids[0], true))
		fav, err := b.ToggleFavorite(ids[0])
		require.NoError(t, err)
		assert.False(t, fav)
		fav, err = b.ToggleFavorite(ids[0])
		require.NoError(t, err)
		assert.True(t, fav)

		after, err := b.Get(ids[0])
		require.NoError(t, err)
		assert.True(t, after.Favorite)
		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, before.Text, after.Text)
		assert.True(t, before.CreatedAt.Equal(after.CreatedAt))

		assert.ErrorIs(t, b.SetFavorite(42, true), ErrNotFound)
		_, err = b.ToggleFavorite(42)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBackendDeleteAndClear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ids := appendAll(t, b, textRecord("a", epoch), textRecord("b", epoch), textRecord("c", epoch))
		require.NoError(t, b.SetFavorite(ids[1], true))

		require.NoError(t, b.Delete(ids[1]))
		assert.ErrorIs(t, b.Delete(ids[1]), ErrNotFound)
		favs, err := b.Count(true)
		require.NoError(t, err)
		assert.Zero(t, favs)

		n, err := b.Clear()
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		next := appendAll(t, b, textRecord("d", epoch))
		assert.Greater(t, next[0], ids[2], "ids are not reused after clear")
	})
}

func TestBackendDeleteBefore(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		now := epoch
		old := textRecord("old", now.Add(-10*24*time.Hour))
		oldFav := textRecord("old favorite", now.Add(-9*24*time.Hour))
		oldFav.Favorite = true
		mid := textRecord("mid", now.Add(-5*24*time.Hour))
		fresh := textRecord("fresh", now)
		appendAll(t, b, old, oldFav, mid, fresh)

		cutoff := now.Add(-7 * 24 * time.Hour)
		n, err := b.DeleteBefore(cutoff, true)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		left, err := b.List(ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh", "mid", "old favorite"}, recordTexts(left))

		n, err = b.DeleteBefore(cutoff, false)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = b.DeleteBefore(cutoff, false)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestBackendTrimTo(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		var recs []*Record
		for i := 0; i < 6; i++ {
			rec := textRecord(strings.Repeat("x", i+1), epoch.Add(time.Duration(i)*time.Second))
			rec.Favorite = i == 0
			recs = append(recs, rec)
		}
		appendAll(t, b, recs...)

		n, err := b.TrimTo(3, true)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		left, err := b.List(ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"xxxxxx", "xxxxx", "xxxx", "x"}, recordTexts(left))

		n, err = b.TrimTo(2, false)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		left, err = b.List(ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"xxxxxx", "xxxxx"}, recordTexts(left))
	})
}

func TestBackendScan(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		appendAll(t, b, textRecord("a", epoch), textRecord("b", epoch), textRecord("c", epoch))

		var seen []string
		require.NoError(t, b.Scan(func(rec *Record) bool {
			seen = append(seen, rec.Text)
			return len(seen) < 2
		}))
		assert.Equal(t, []string{"c", "b"}, seen)
	})
}

func TestBackendNotes(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		first := &NoteRecord{CreatedAt: epoch, Content: "buy milk"}
		second := &NoteRecord{CreatedAt: epoch.Add(time.Minute), Content: "call back"}
		require.NoError(t, b.AddNote(first))
		require.NoError(t, b.AddNote(second))
		assert.Greater(t, second.ID, first.ID)

		notes, err := b.ListNotes(0, 0)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, "call back", notes[0].Content)

		require.NoError(t, b.UpdateNote(first.ID, "c2VhbGVk", true))
		got, err := b.GetNote(first.ID)
		require.NoError(t, err)
		assert.Equal(t, "c2VhbGVk", got.Content)
		assert.True(t, got.Encrypted)
		assert.True(t, got.CreatedAt.Equal(epoch))

		require.NoError(t, b.DeleteNote(second.ID))
		assert.ErrorIs(t, b.DeleteNote(second.ID), ErrNotFound)
		assert.ErrorIs(t, b.UpdateNote(second.ID, "x", false), ErrNotFound)
		_, err = b.GetNote(second.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		n, err := b.ClearNotes()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		notes, err = b.ListNotes(10, 0)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})
}
