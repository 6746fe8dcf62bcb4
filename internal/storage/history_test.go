package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/berrythewa/clipstack/internal/crypto"
	"github.com/berrythewa/clipstack/internal/types"
)

// forEachDriver runs fn once per storage driver.
func forEachDriver(t *testing.T, fn func(t *testing.T, driver string)) {
	for _, driver := range []string{"bolt", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			fn(t, driver)
		})
	}
}

func newTestHistory(t *testing.T, driver string, opts HistoryOptions) (*History, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history."+driver)
	return reopenHistory(t, driver, path, opts), path
}

// reopenHistory opens a History over an existing or new file at path.
func reopenHistory(t *testing.T, driver, path string, opts HistoryOptions) *History {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	h, err := OpenHistory(driver, path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func insert(t *testing.T, h *History, c types.Content) (*types.ClipItem, bool) {
	t.Helper()
	item, stored, err := h.Insert(c, h.now())
	require.NoError(t, err)
	return item, stored
}

func contents(items []*types.ClipItem) []types.Content {
	out := make([]types.Content, 0, len(items))
	for _, it := range items {
		out = append(out, it.Content)
	}
	return out
}

func TestHistoryAdjacentDuplicates(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{})

		first, stored := insert(t, h, types.Text("A"))
		require.True(t, stored)
		assert.NotZero(t, first.ID)

		item, stored := insert(t, h, types.Text("A"))
		assert.False(t, stored)
		assert.Nil(t, item)

		n, err := h.Count(false)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestHistoryNonAdjacentDuplicatesAreKept(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{})

		for _, s := range []string{"A", "B", "A"} {
			_, stored := insert(t, h, types.Text(s))
			require.True(t, stored, s)
		}
		items, err := h.List(ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []types.Content{types.Text("A"), types.Text("B"), types.Text("A")}, contents(items))
	})
}

func TestHistorySamePayloadDifferentKind(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{})

		_, stored := insert(t, h, types.Text("<b>x</b>"))
		require.True(t, stored)
		_, stored = insert(t, h, types.HTML("<b>x</b>"))
		assert.True(t, stored)
	})
}

func TestHistoryRejectsEmptyContent(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{})

		_, _, err := h.Insert(types.Text(""), time.Now())
		assert.ErrorIs(t, err, ErrInvalidContent)
		_, _, err = h.Insert(nil, time.Now())
		assert.ErrorIs(t, err, ErrInvalidContent)
	})
}

func TestHistoryFavorites(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{})

		a, _ := insert(t, h, types.Text("A"))
		b, _ := insert(t, h, types.Image([]byte{1, 2, 3}))

		require.NoError(t, h.SetFavorite(a.ID, true))
		fav, err := h.ToggleFavorite(b.ID)
		require.NoError(t, err)
		assert.True(t, fav)
		fav, err = h.ToggleFavorite(b.ID)
		require.NoError(t, err)
		assert.False(t, fav)

		favs, err := h.List(ListOptions{FavoritesOnly: true})
		require.NoError(t, err)
		require.Len(t, favs, 1)
		assert.Equal(t, a.ID, favs[0].ID)
		assert.Equal(t, types.Text("A"), favs[0].Content)
		assert.True(t, favs[0].Favorite)

		err = h.SetFavorite(9999, true)
		assert.True(t, IsNotFound(err))
	})
}

func TestHistoryDeleteAndClear(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{})

		a, _ := insert(t, h, types.Text("A"))
		insert(t, h, types.Text("B"))

		require.NoError(t, h.Delete(a.ID))
		_, err := h.Get(a.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		n, err := h.Clear()
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		items, err := h.List(ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestHistorySearch(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{})

		insert(t, h, types.Text("Meeting notes for Monday"))
		insert(t, h, types.Image([]byte("monday.png")))
		insert(t, h, types.HTML("<p>See you <b>MONDAY</b></p><script>tuesday()</script>"))
		insert(t, h, types.Text("unrelated"))

		found, err := h.Search("monday", ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []types.Content{
			types.HTML("<p>See you <b>MONDAY</b></p><script>tuesday()</script>"),
			types.Text("Meeting notes for Monday"),
		}, contents(found))

		found, err = h.Search("tuesday", ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, found, "script content is not searchable")

		found, err = h.Search("monday", ListOptions{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []types.Content{types.Text("Meeting notes for Monday")}, contents(found))

		all, err := h.Search("  ", ListOptions{})
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})
}

func TestHistoryEncryptionRoundTrip(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, path := newTestHistory(t, driver, HistoryOptions{Encrypt: true, Passphrase: "correct horse"})
		assert.Equal(t, StateUnlocked, h.State())

		item, stored := insert(t, h, types.Text("secret"))
		require.True(t, stored)
		insert(t, h, types.HTML("<i>hidden</i>"))
		insert(t, h, types.Image([]byte{9, 9}))

		rec, err := h.backend.Get(item.ID)
		require.NoError(t, err)
		assert.True(t, rec.Encrypted)
		assert.NotContains(t, rec.Text, "secret")

		items, err := h.List(ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []types.Content{
			types.Image([]byte{9, 9}),
			types.HTML("<i>hidden</i>"),
			types.Text("secret"),
		}, contents(items))

		_, stored = insert(t, h, types.Image([]byte{9, 9}))
		assert.False(t, stored)
		require.NoError(t, h.Close())

		h2 := reopenHistory(t, driver, path, HistoryOptions{Encrypt: true, Passphrase: "correct horse"})

		got, err := h2.Get(item.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Text("secret"), got.Content)
	})
}

func TestHistoryEncryptedDuplicateDetection(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{Encrypt: true, Passphrase: "pw"})

		_, stored := insert(t, h, types.Text("same"))
		require.True(t, stored)
		_, stored = insert(t, h, types.Text("same"))
		assert.False(t, stored)
	})
}

func TestHistoryLocked(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, path := newTestHistory(t, driver, HistoryOptions{Encrypt: true, Passphrase: "pw"})
		item, _ := insert(t, h, types.Text("secret"))
		img, _ := insert(t, h, types.Image([]byte{1}))
		note, err := h.AddNote("private note", time.Now())
		require.NoError(t, err)
		require.NoError(t, h.Close())

		locked := reopenHistory(t, driver, path, HistoryOptions{Encrypt: true})
		assert.Equal(t, StateLocked, locked.State())

		_, _, err = locked.Insert(types.Text("new"), time.Now())
		assert.ErrorIs(t, err, ErrLocked)
		_, err = locked.AddNote("new note", time.Now())
		assert.ErrorIs(t, err, ErrLocked)
		assert.ErrorIs(t, locked.UpdateNote(note.ID, "changed"), ErrLocked)

		got, err := locked.Get(item.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Text(crypto.Placeholder), got.Content)

		gotImg, err := locked.Get(img.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Image([]byte{1}), gotImg.Content)

		gotNote, err := locked.GetNote(note.ID)
		require.NoError(t, err)
		assert.Equal(t, crypto.Placeholder, gotNote.Content)

		found, err := locked.Search("placeholder", ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, found)

		require.NoError(t, locked.Unlock("pw"))
		assert.Equal(t, StateUnlocked, locked.State())
		got, err = locked.Get(item.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Text("secret"), got.Content)
	})
}

func TestHistoryWrongPassphrase(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, path := newTestHistory(t, driver, HistoryOptions{Encrypt: true, Passphrase: "right"})
		item, _ := insert(t, h, types.Text("secret"))
		require.NoError(t, h.Close())

		wrong := reopenHistory(t, driver, path, HistoryOptions{Encrypt: true, Passphrase: "wrong"})

		got, err := wrong.Get(item.ID)
		require.NoError(t, err)
		assert.Equal(t, types.Text(crypto.Placeholder), got.Content)

		_, stored, err := wrong.Insert(types.Text("secret"), time.Now())
		require.NoError(t, err)
		assert.True(t, stored, "an unreadable predecessor never counts as a duplicate")
	})
}

func TestHistoryUnlockPlain(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{})
		assert.Equal(t, StatePlain, h.State())
		assert.ErrorIs(t, h.Unlock("pw"), ErrEncryptionDisabled)
	})
}

func TestHistoryUnlockEmptyPassphrase(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{Encrypt: true})
		assert.ErrorIs(t, h.Unlock(""), crypto.ErrEmptyPassphrase)
		assert.Equal(t, StateLocked, h.State())
	})
}

func TestHistorySweepRetention(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		day := 24 * time.Hour
		now := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

		for _, tc := range []struct {
			name          string
			keepFavorites bool
			wantExpired   int
			wantLeft      []types.Content
		}{
			{
				name:          "keep favorites",
				keepFavorites: true,
				wantExpired:   0,
				wantLeft:      []types.Content{types.Text("today"), types.Text("five days"), types.Text("ten days")},
			},
			{
				name:          "drop favorites",
				keepFavorites: false,
				wantExpired:   1,
				wantLeft:      []types.Content{types.Text("today"), types.Text("five days")},
			},
		} {
			t.Run(tc.name, func(t *testing.T) {
				h, _ := newTestHistory(t, driver, HistoryOptions{})
				h.now = func() time.Time { return now }

				old, _, err := h.Insert(types.Text("ten days"), now.Add(-10*day))
				require.NoError(t, err)
				_, _, err = h.Insert(types.Text("five days"), now.Add(-5*day))
				require.NoError(t, err)
				_, _, err = h.Insert(types.Text("today"), now)
				require.NoError(t, err)
				require.NoError(t, h.SetFavorite(old.ID, true))

				res, err := h.Sweep(RetentionPolicy{MaxAge: 7 * day, KeepFavorites: tc.keepFavorites})
				require.NoError(t, err)
				assert.Equal(t, tc.wantExpired, res.Expired)
				assert.Zero(t, res.Trimmed)

				items, err := h.List(ListOptions{})
				require.NoError(t, err)
				assert.Equal(t, tc.wantLeft, contents(items))
			})
		}
	})
}

func TestHistorySweepMaxItems(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{})
		for _, s := range []string{"a", "b", "c", "d"} {
			insert(t, h, types.Text(s))
		}

		res, err := h.Sweep(RetentionPolicy{MaxItems: 2})
		require.NoError(t, err)
		assert.Equal(t, SweepResult{Trimmed: 2}, res)
		assert.Equal(t, 2, res.Total())

		items, err := h.List(ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []types.Content{types.Text("d"), types.Text("c")}, contents(items))

		res, err = h.Sweep(RetentionPolicy{})
		require.NoError(t, err)
		assert.Zero(t, res.Total())
	})
}

func TestHistoryNotes(t *testing.T) {
	forEachDriver(t, func(t *testing.T, driver string) {
		h, _ := newTestHistory(t, driver, HistoryOptions{Encrypt: true, Passphrase: "pw"})

		_, err := h.AddNote("   ", time.Now())
		assert.ErrorIs(t, err, ErrInvalidContent)

		note, err := h.AddNote("remember the milk", time.Now())
		require.NoError(t, err)

		rec, err := h.backend.GetNote(note.ID)
		require.NoError(t, err)
		assert.True(t, rec.Encrypted)
		assert.NotEqual(t, "remember the milk", rec.Content)

		require.NoError(t, h.UpdateNote(note.ID, "remember the eggs"))
		got, err := h.GetNote(note.ID)
		require.NoError(t, err)
		assert.Equal(t, "remember the eggs", got.Content)

		notes, err := h.ListNotes(0, 0)
		require.NoError(t, err)
		require.Len(t, notes, 1)

		require.NoError(t, h.DeleteNote(note.ID))
		assert.True(t, IsNotFound(h.DeleteNote(note.ID)))

		n, err := h.ClearNotes()
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
