package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/crypto"
	"github.com/berrythewa/clipstack/internal/markup"
	"github.com/berrythewa/clipstack/internal/types"
)

// State is the encryption state of a History.
type State int

const (
	// StatePlain means encryption is off.
	StatePlain State = iota
	// StateLocked means encryption is on but no passphrase was supplied.
	StateLocked
	// StateUnlocked means the passphrase is held in memory.
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StatePlain:
		return "plain"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// HistoryOptions configures a History.
type HistoryOptions struct {
	// Encrypt turns on encryption of text fields at rest.
	Encrypt bool
	// Passphrase unlocks the history right away when set. It is only ever
	// kept in memory.
	Passphrase string
	Logger     *zap.Logger
}

// RetentionPolicy describes what a sweep removes. Zero values disable the
// matching rule.
type RetentionPolicy struct {
	MaxAge        time.Duration
	KeepFavorites bool
	MaxItems      int
}

// SweepResult counts what a sweep removed.
type SweepResult struct {
	Expired int `json:"expired"`
	Trimmed int `json:"trimmed"`
}

// Total is the number of removed items.
func (r SweepResult) Total() int { return r.Expired + r.Trimmed }

// History is the clipboard history: adjacency dedup on insert, favorites,
// retention and optional encryption of text at rest, over a Backend.
type History struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.RWMutex
	encrypt bool
	cipher  *crypto.Cipher
}

// NewHistory wraps backend. With Encrypt set and no Passphrase the history
// starts Locked.
func NewHistory(backend Backend, opts HistoryOptions) (*History, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &History{
		backend: backend,
		logger:  logger,
		now:     time.Now,
		encrypt: opts.Encrypt,
	}
	if opts.Encrypt && opts.Passphrase != "" {
		if err := h.Unlock(opts.Passphrase); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// State reports the encryption state.
func (h *History) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	switch {
	case !h.encrypt:
		return StatePlain
	case h.cipher == nil:
		return StateLocked
	default:
		return StateUnlocked
	}
}

// Unlock supplies the passphrase for this session. The passphrase is not
// checked against existing data; a wrong one shows up as placeholders on read.
func (h *History) Unlock(passphrase string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.encrypt {
		return ErrEncryptionDisabled
	}
	c, err := crypto.NewCipher(passphrase)
	if err != nil {
		return fmt.Errorf("failed to unlock history: %w", err)
	}
	h.cipher = c
	h.logger.Info("History unlocked")
	return nil
}

// writeCipher returns the cipher to seal new text with, nil when encryption
// is off, or ErrLocked.
func (h *History) writeCipher() (*crypto.Cipher, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.encrypt {
		return nil, nil
	}
	if h.cipher == nil {
		return nil, ErrLocked
	}
	return h.cipher, nil
}

func (h *History) readCipher() *crypto.Cipher {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cipher
}

func (h *History) seal(c *crypto.Cipher, plain string) (string, bool, error) {
	if c == nil {
		return plain, false, nil
	}
	sealed, err := c.Encrypt(plain)
	if err != nil {
		return "", false, fmt.Errorf("failed to encrypt: %w", err)
	}
	return sealed, true, nil
}

// open returns the plaintext of a stored field, or the placeholder and
// false when it cannot be decrypted.
func (h *History) open(c *crypto.Cipher, stored string, encrypted bool) (string, bool) {
	if !encrypted {
		return stored, true
	}
	plain, ok := c.DecryptOrPlaceholder(stored)
	if !ok {
		h.logger.Debug("Failed to decrypt field, using placeholder")
	}
	return plain, ok
}

// decode turns a stored record into an item, decrypting as needed. It
// reports false when a field could not be decrypted.
func (h *History) decode(c *crypto.Cipher, rec *Record) (*types.ClipItem, bool) {
	item := &types.ClipItem{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		Favorite:  rec.Favorite,
	}
	intact := true
	switch rec.Kind {
	case types.KindText:
		var text string
		text, intact = h.open(c, rec.Text, rec.Encrypted)
		item.Content = types.Text(text)
	case types.KindHTML:
		var html string
		html, intact = h.open(c, rec.HTML, rec.Encrypted)
		item.Content = types.HTML(html)
	case types.KindImage:
		item.Content = types.Image(rec.Image)
	default:
		item.Content = types.Text(fmt.Sprintf("[unknown content kind %d]", int(rec.Kind)))
		intact = false
	}
	return item, intact
}

// Insert stores content unless the most recent item has the same kind and
// the same payload, in which case it returns stored=false and no error.
func (h *History) Insert(content types.Content, createdAt time.Time) (*types.ClipItem, bool, error) {
	if content == nil || len(content.Bytes()) == 0 {
		return nil, false, ErrInvalidContent
	}
	c, err := h.writeCipher()
	if err != nil {
		return nil, false, err
	}

	rec := &Record{CreatedAt: createdAt, Kind: content.Kind()}
	switch v := content.(type) {
	case types.Text:
		rec.Text, rec.Encrypted, err = h.seal(c, string(v))
	case types.HTML:
		rec.HTML, rec.Encrypted, err = h.seal(c, string(v))
	case types.Image:
		rec.Image = []byte(v)
	default:
		return nil, false, ErrInvalidContent
	}
	if err != nil {
		return nil, false, err
	}

	skip := func(last *Record) bool {
		if last.Kind != rec.Kind {
			return false
		}
		prev, intact := h.decode(c, last)
		return intact && types.SameContent(prev.Content, content)
	}
	stored, err := h.backend.Append(rec, skip)
	if err != nil {
		return nil, false, err
	}
	if !stored {
		return nil, false, nil
	}
	return &types.ClipItem{
		ID:        rec.ID,
		CreatedAt: createdAt,
		Content:   content,
	}, true, nil
}

// Get returns one item.
func (h *History) Get(id uint64) (*types.ClipItem, error) {
	rec, err := h.backend.Get(id)
	if err != nil {
		return nil, err
	}
	item, _ := h.decode(h.readCipher(), rec)
	return item, nil
}

// List returns items newest first.
func (h *History) List(opts ListOptions) ([]*types.ClipItem, error) {
	recs, err := h.backend.List(opts)
	if err != nil {
		return nil, err
	}
	c := h.readCipher()
	items := make([]*types.ClipItem, 0, len(recs))
	for _, rec := range recs {
		item, _ := h.decode(c, rec)
		items = append(items, item)
	}
	return items, nil
}

// Count returns the number of items, or of favorites only.
func (h *History) Count(favoritesOnly bool) (int, error) {
	return h.backend.Count(favoritesOnly)
}

// Search filters items by a case-insensitive substring of their text or of
// the rendered text of their markup. Images never match. Paging applies to
// the filtered sequence.
func (h *History) Search(query string, opts ListOptions) ([]*types.ClipItem, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return h.List(opts)
	}
	limit, skip := opts.limit(), opts.offset()
	c := h.readCipher()

	var items []*types.ClipItem
	err := h.backend.Scan(func(rec *Record) bool {
		if opts.FavoritesOnly && !rec.Favorite {
			return true
		}
		item, intact := h.decode(c, rec)
		if !intact || !matches(item.Content, needle) {
			return true
		}
		if skip > 0 {
			skip--
			return true
		}
		items = append(items, item)
		return len(items) < limit
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search history: %w", err)
	}
	return items, nil
}

func matches(content types.Content, needle string) bool {
	switch v := content.(type) {
	case types.Text:
		return strings.Contains(strings.ToLower(string(v)), needle)
	case types.HTML:
		plain, err := markup.PlainText(string(v))
		if err != nil {
			plain = string(v)
		}
		return strings.Contains(strings.ToLower(plain), needle)
	}
	return false
}

// Delete removes one item permanently.
func (h *History) Delete(id uint64) error {
	return h.backend.Delete(id)
}

// Clear removes every item and returns how many were removed.
func (h *History) Clear() (int, error) {
	return h.backend.Clear()
}

// SetFavorite sets the favorite flag only.
func (h *History) SetFavorite(id uint64, favorite bool) error {
	return h.backend.SetFavorite(id, favorite)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (h *History) ToggleFavorite(id uint64) (bool, error) {
	return h.backend.ToggleFavorite(id)
}

// Sweep applies the retention policy: items older than MaxAge go first,
// then the oldest beyond MaxItems. Favorites are exempt from both when
// KeepFavorites is set.
func (h *History) Sweep(policy RetentionPolicy) (SweepResult, error) {
	var res SweepResult
	if policy.MaxAge > 0 {
		cutoff := h.now().Add(-policy.MaxAge)
		n, err := h.backend.DeleteBefore(cutoff, policy.KeepFavorites)
		res.Expired = n
		if err != nil {
			return res, fmt.Errorf("failed to delete expired items: %w", err)
		}
	}
	if policy.MaxItems > 0 {
		n, err := h.backend.TrimTo(policy.MaxItems, policy.KeepFavorites)
		res.Trimmed = n
		if err != nil {
			return res, fmt.Errorf("failed to trim history: %w", err)
		}
	}
	if res.Total() > 0 {
		h.logger.Info("Retention sweep removed items",
			zap.Int("expired", res.Expired),
			zap.Int("trimmed", res.Trimmed),
			zap.Bool("keep_favorites", policy.KeepFavorites))
	}
	return res, nil
}

// AddNote stores a new note.
func (h *History) AddNote(content string, createdAt time.Time) (*types.Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrInvalidContent
	}
	c, err := h.writeCipher()
	if err != nil {
		return nil, err
	}
	sealed, encrypted, err := h.seal(c, content)
	if err != nil {
		return nil, err
	}
	rec := &NoteRecord{CreatedAt: createdAt, Content: sealed, Encrypted: encrypted}
	if err := h.backend.AddNote(rec); err != nil {
		return nil, err
	}
	return &types.Note{ID: rec.ID, CreatedAt: createdAt, Content: content}, nil
}

func (h *History) decodeNote(c *crypto.Cipher, rec *NoteRecord) *types.Note {
	content, _ := h.open(c, rec.Content, rec.Encrypted)
	return &types.Note{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		Content:   content,
	}
}

// GetNote returns one note.
func (h *History) GetNote(id uint64) (*types.Note, error) {
	rec, err := h.backend.GetNote(id)
	if err != nil {
		return nil, err
	}
	return h.decodeNote(h.readCipher(), rec), nil
}

// ListNotes returns notes newest first.
func (h *History) ListNotes(limit, offset int) ([]*types.Note, error) {
	recs, err := h.backend.ListNotes(limit, offset)
	if err != nil {
		return nil, err
	}
	c := h.readCipher()
	notes := make([]*types.Note, 0, len(recs))
	for _, rec := range recs {
		notes = append(notes, h.decodeNote(c, rec))
	}
	return notes, nil
}

// UpdateNote replaces the content of a note.
func (h *History) UpdateNote(id uint64, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrInvalidContent
	}
	c, err := h.writeCipher()
	if err != nil {
		return err
	}
	sealed, encrypted, err := h.seal(c, content)
	if err != nil {
		return err
	}
	return h.backend.UpdateNote(id, sealed, encrypted)
}

// DeleteNote removes one note.
func (h *History) DeleteNote(id uint64) error {
	return h.backend.DeleteNote(id)
}

// ClearNotes removes every note.
func (h *History) ClearNotes() (int, error) {
	return h.backend.ClearNotes()
}

// Close closes the backend.
func (h *History) Close() error {
	return h.backend.Close()
}

// IsNotFound reports whether err means the requested id does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
