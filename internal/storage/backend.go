package storage

import (
	"errors"
	"time"

	"github.com/berrythewa/clipstack/internal/types"
)

var (
	// ErrNotFound is returned for an id that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrLocked is returned for writes while encryption is on and no
	// passphrase has been supplied.
	ErrLocked = errors.New("history is locked: passphrase required")
	// ErrInvalidContent is returned for empty or unknown content.
	ErrInvalidContent = errors.New("invalid content")
	// ErrEncryptionDisabled is returned by Unlock when encryption is off.
	ErrEncryptionDisabled = errors.New("encryption is not enabled")
)

// DefaultListLimit is used when a list call does not set a limit.
const DefaultListLimit = 200

// Record is a clip item as a backend stores it. Text and HTML hold
// ciphertext when Encrypted is set; exactly one payload field is non-empty
// and it matches Kind.
type Record struct {
	ID        uint64
	CreatedAt time.Time
	Kind      types.Kind
	Text      string
	Image     []byte
	HTML      string
	Favorite  bool
	Encrypted bool
}

// NoteRecord is a note as a backend stores it.
type NoteRecord struct {
	ID        uint64
	CreatedAt time.Time
	Content   string
	Encrypted bool
}

// ListOptions pages a listing. Results are always newest first.
type ListOptions struct {
	Limit         int
	Offset        int
	FavoritesOnly bool
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

func (o ListOptions) offset() int {
	if o.Offset < 0 {
		return 0
	}
	return o.Offset
}

// Backend is the durable store under History. Implementations serialize
// their own writes and must be safe for concurrent use.
type Backend interface {
	// Append stores rec and sets rec.ID unless skip reports true for the
	// most recent record. Reading the most recent record and writing happen
	// atomically. skip is not called on an empty store.
	Append(rec *Record, skip func(last *Record) bool) (stored bool, err error)
	Get(id uint64) (*Record, error)
	List(opts ListOptions) ([]*Record, error)
	Count(favoritesOnly bool) (int, error)
	// Scan visits records newest first until fn returns false. Like List
	// and Get, it fails on a record it cannot decode.
	Scan(fn func(rec *Record) bool) error
	Delete(id uint64) error
	Clear() (int, error)
	SetFavorite(id uint64, favorite bool) error
	ToggleFavorite(id uint64) (bool, error)
	// DeleteBefore removes records created before cutoff.
	DeleteBefore(cutoff time.Time, keepFavorites bool) (int, error)
	// TrimTo keeps only the newest max records. With keepFavorites,
	// favorites are neither counted nor removed.
	TrimTo(max int, keepFavorites bool) (int, error)

	AddNote(note *NoteRecord) error
	GetNote(id uint64) (*NoteRecord, error)
	ListNotes(limit, offset int) ([]*NoteRecord, error)
	UpdateNote(id uint64, content string, encrypted bool) error
	DeleteNote(id uint64) error
	ClearNotes() (int, error)

	Close() error
}
