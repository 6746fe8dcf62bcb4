package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/types"
	"github.com/berrythewa/clipstack/pkg/compression"
)

var (
	clipsBucket     = []byte("clips")
	favoritesBucket = []byte("favorites")
	createdBucket   = []byte("created")
	notesBucket     = []byte("notes")

	// indexed is the value of every index entry.
	indexed = []byte{1}
)

// DefaultBatchSize bounds how many records one delete transaction removes.
const DefaultBatchSize = 500

// BoltConfig holds configuration for BoltBackend initialization
type BoltConfig struct {
	DBPath    string
	BatchSize int
	Logger    *zap.Logger
}

// BoltBackend stores history in a bbolt file. Clips are keyed by big-endian
// id so cursor order is insertion order; favorites and created hold index
// keys only.
type BoltBackend struct {
	db        *bbolt.DB
	batchSize int
	logger    *zap.Logger
}

// boltRecord is the JSON value stored under each clip key. Large plaintext
// payloads are gzipped into Packed.
type boltRecord struct {
	CreatedAt time.Time `json:"created_at"`
	Kind      int       `json:"kind"`
	Text      string    `json:"text,omitempty"`
	Image     []byte    `json:"image,omitempty"`
	HTML      string    `json:"html,omitempty"`
	Packed    []byte    `json:"packed,omitempty"`
	Favorite  bool      `json:"favorite,omitempty"`
	Encrypted bool      `json:"encrypted,omitempty"`
}

type boltNote struct {
	CreatedAt time.Time `json:"created_at"`
	Content   string    `json:"content"`
	Encrypted bool      `json:"encrypted,omitempty"`
}

// NewBoltBackend opens or creates the database file.
func NewBoltBackend(config BoltConfig) (*BoltBackend, error) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	if err := os.MkdirAll(filepath.Dir(config.DBPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := bbolt.Open(config.DBPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{clipsBucket, favoritesBucket, createdBucket, notesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("BoltBackend initialized", zap.String("db_path", config.DBPath))
	return &BoltBackend{db: db, batchSize: batchSize, logger: logger}, nil
}

func itob(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// createdKey orders records by creation time, ties broken by id.
func createdKey(t time.Time, id uint64) []byte {
	ns := t.UnixNano()
	if ns < 0 {
		ns = 0
	}
	k := make([]byte, 16)
	binary.BigEndian.PutUint64(k, uint64(ns))
	binary.BigEndian.PutUint64(k[8:], id)
	return k
}

func encodeRecord(rec *Record) ([]byte, error) {
	br := boltRecord{
		CreatedAt: rec.CreatedAt,
		Kind:      int(rec.Kind),
		Text:      rec.Text,
		Image:     rec.Image,
		HTML:      rec.HTML,
		Favorite:  rec.Favorite,
		Encrypted: rec.Encrypted,
	}
	if !rec.Encrypted {
		var payload string
		switch rec.Kind {
		case types.KindText:
			payload = rec.Text
		case types.KindHTML:
			payload = rec.HTML
		}
		if compression.ShouldCompress([]byte(payload)) {
			packed, err := compression.Compress([]byte(payload))
			if err != nil {
				return nil, fmt.Errorf("failed to compress payload: %w", err)
			}
			br.Text, br.HTML, br.Packed = "", "", packed
		}
	}
	return json.Marshal(br)
}

func decodeRecord(k, v []byte) (*Record, error) {
	var br boltRecord
	if err := json.Unmarshal(v, &br); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %d: %w", btoi(k), err)
	}
	rec := &Record{
		ID:        btoi(k),
		CreatedAt: br.CreatedAt,
		Kind:      types.Kind(br.Kind),
		Text:      br.Text,
		Image:     br.Image,
		HTML:      br.HTML,
		Favorite:  br.Favorite,
		Encrypted: br.Encrypted,
	}
	if len(br.Packed) > 0 {
		payload, err := compression.Decompress(br.Packed)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress record %d: %w", rec.ID, err)
		}
		if rec.Kind == types.KindHTML {
			rec.HTML = string(payload)
		} else {
			rec.Text = string(payload)
		}
	}
	return rec, nil
}

func putRecord(tx *bbolt.Tx, rec *Record) error {
	encoded, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	key := itob(rec.ID)
	if err := tx.Bucket(clipsBucket).Put(key, encoded); err != nil {
		return err
	}
	favs := tx.Bucket(favoritesBucket)
	if rec.Favorite {
		return favs.Put(key, indexed)
	}
	return favs.Delete(key)
}

func getRecord(tx *bbolt.Tx, id uint64) (*Record, error) {
	key := itob(id)
	v := tx.Bucket(clipsBucket).Get(key)
	if v == nil {
		return nil, fmt.Errorf("clip %d: %w", id, ErrNotFound)
	}
	return decodeRecord(key, v)
}

// deleteRecord removes a record and its index entries. It reports false when
// the record is already gone or when deletable, if set, rejects it.
func deleteRecord(tx *bbolt.Tx, id uint64, deletable func(tx *bbolt.Tx, rec *Record) bool) (bool, error) {
	rec, err := getRecord(tx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if deletable != nil && !deletable(tx, rec) {
		return false, nil
	}
	key := itob(id)
	if err := tx.Bucket(clipsBucket).Delete(key); err != nil {
		return false, err
	}
	if err := tx.Bucket(favoritesBucket).Delete(key); err != nil {
		return false, err
	}
	if err := tx.Bucket(createdBucket).Delete(createdKey(rec.CreatedAt, id)); err != nil {
		return false, err
	}
	return true, nil
}

// Append implements Backend.
func (s *BoltBackend) Append(rec *Record, skip func(last *Record) bool) (bool, error) {
	stored := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		clips := tx.Bucket(clipsBucket)
		if k, v := clips.Cursor().Last(); k != nil && skip != nil {
			last, err := decodeRecord(k, v)
			if err != nil {
				return err
			}
			if skip(last) {
				return nil
			}
		}

		id, err := clips.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate id: %w", err)
		}
		rec.ID = id
		if err := putRecord(tx, rec); err != nil {
			return fmt.Errorf("failed to put record: %w", err)
		}
		if err := tx.Bucket(createdBucket).Put(createdKey(rec.CreatedAt, id), indexed); err != nil {
			return fmt.Errorf("failed to index record: %w", err)
		}
		stored = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to append record: %w", err)
	}
	if stored {
		s.logger.Debug("Record appended", zap.Uint64("id", rec.ID), zap.Stringer("kind", rec.Kind))
	}
	return stored, nil
}

// Get implements Backend.
func (s *BoltBackend) Get(id uint64) (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		rec, err = getRecord(tx, id)
		return err
	})
	return rec, err
}

// List implements Backend.
func (s *BoltBackend) List(opts ListOptions) ([]*Record, error) {
	limit, skip := opts.limit(), opts.offset()
	var out []*Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		clips := tx.Bucket(clipsBucket)
		index := clips
		if opts.FavoritesOnly {
			index = tx.Bucket(favoritesBucket)
		}
		c := index.Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			if skip > 0 {
				skip--
				continue
			}
			if opts.FavoritesOnly {
				v = clips.Get(k)
				if v == nil {
					continue
				}
			}
			rec, err := decodeRecord(k, v)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return out, nil
}

// Count implements Backend.
func (s *BoltBackend) Count(favoritesOnly bool) (int, error) {
	name := clipsBucket
	if favoritesOnly {
		name = favoritesBucket
	}
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(name).Stats().KeyN
		return nil
	})
	return n, err
}

// Scan implements Backend.
func (s *BoltBackend) Scan(fn func(rec *Record) bool) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(clipsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			rec, err := decodeRecord(k, v)
			if err != nil {
				return err
			}
			if !fn(rec) {
				return nil
			}
		}
		return nil
	})
}

// Delete implements Backend.
func (s *BoltBackend) Delete(id uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		ok, err := deleteRecord(tx, id, nil)
		if err != nil {
			return fmt.Errorf("failed to delete clip %d: %w", id, err)
		}
		if !ok {
			return fmt.Errorf("clip %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// Clear implements Backend. The id sequence survives so ids are never reused.
func (s *BoltBackend) Clear() (int, error) {
	var n int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		clips := tx.Bucket(clipsBucket)
		n = clips.Stats().KeyN
		seq := clips.Sequence()
		for _, name := range [][]byte{clipsBucket, favoritesBucket, createdBucket} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return tx.Bucket(clipsBucket).SetSequence(seq)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	s.logger.Info("History cleared", zap.Int("deleted_items", n))
	return n, nil
}

// SetFavorite implements Backend.
func (s *BoltBackend) SetFavorite(id uint64, favorite bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		if rec.Favorite == favorite {
			return nil
		}
		rec.Favorite = favorite
		return putRecord(tx, rec)
	})
}

// ToggleFavorite implements Backend.
func (s *BoltBackend) ToggleFavorite(id uint64) (bool, error) {
	var favorite bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		rec.Favorite = !rec.Favorite
		favorite = rec.Favorite
		return putRecord(tx, rec)
	})
	return favorite, err
}

// DeleteBefore implements Backend. Candidates are collected in a read
// transaction and removed in batches so writers are never held up for long.
// Each batch checks its records again, so an item starred while the sweep
// runs survives it.
func (s *BoltBackend) DeleteBefore(cutoff time.Time, keepFavorites bool) (int, error) {
	ids, err := s.expiredIDs(cutoff, keepFavorites)
	if err != nil {
		return 0, err
	}
	return s.deleteBatched(ids, sweepable(keepFavorites, cutoff))
}

func (s *BoltBackend) expiredIDs(cutoff time.Time, keepFavorites bool) ([]uint64, error) {
	var ids []uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		favs := tx.Bucket(favoritesBucket)
		end := createdKey(cutoff, 0)
		c := tx.Bucket(createdBucket).Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k, end) < 0; k, _ = c.Next() {
			id := k[8:]
			if keepFavorites && favs.Get(id) != nil {
				continue
			}
			ids = append(ids, btoi(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect expired records: %w", err)
	}
	return ids, nil
}

// TrimTo implements Backend.
func (s *BoltBackend) TrimTo(max int, keepFavorites bool) (int, error) {
	if max < 0 {
		max = 0
	}
	var ids []uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		favs := tx.Bucket(favoritesBucket)
		kept := 0
		c := tx.Bucket(clipsBucket).Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			if keepFavorites && favs.Get(k) != nil {
				continue
			}
			if kept < max {
				kept++
				continue
			}
			ids = append(ids, btoi(k))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to collect records to trim: %w", err)
	}
	return s.deleteBatched(ids, sweepable(keepFavorites, time.Time{}))
}

// sweepable re-checks a sweep candidate inside the deleting transaction. A
// zero cutoff skips the age check.
func sweepable(keepFavorites bool, cutoff time.Time) func(tx *bbolt.Tx, rec *Record) bool {
	return func(tx *bbolt.Tx, rec *Record) bool {
		if keepFavorites && tx.Bucket(favoritesBucket).Get(itob(rec.ID)) != nil {
			return false
		}
		return cutoff.IsZero() || rec.CreatedAt.Before(cutoff)
	}
}

func (s *BoltBackend) deleteBatched(ids []uint64, deletable func(tx *bbolt.Tx, rec *Record) bool) (int, error) {
	deleted := 0
	for start := 0; start < len(ids); start += s.batchSize {
		end := start + s.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		err := s.db.Update(func(tx *bbolt.Tx) error {
			for _, id := range ids[start:end] {
				ok, err := deleteRecord(tx, id, deletable)
				if err != nil {
					return err
				}
				if ok {
					deleted++
				}
			}
			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to delete batch: %w", err)
		}
	}
	if deleted > 0 {
		s.logger.Debug("Records deleted", zap.Int("deleted_items", deleted))
	}
	return deleted, nil
}

// AddNote implements Backend.
func (s *BoltBackend) AddNote(note *NoteRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		notes := tx.Bucket(notesBucket)
		id, err := notes.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate note id: %w", err)
		}
		note.ID = id
		return putNote(notes, note)
	})
}

func putNote(notes *bbolt.Bucket, note *NoteRecord) error {
	encoded, err := json.Marshal(boltNote{
		CreatedAt: note.CreatedAt,
		Content:   note.Content,
		Encrypted: note.Encrypted,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal note: %w", err)
	}
	return notes.Put(itob(note.ID), encoded)
}

func decodeNote(k, v []byte) (*NoteRecord, error) {
	var bn boltNote
	if err := json.Unmarshal(v, &bn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal note %d: %w", btoi(k), err)
	}
	return &NoteRecord{ID: btoi(k), CreatedAt: bn.CreatedAt, Content: bn.Content, Encrypted: bn.Encrypted}, nil
}

// GetNote implements Backend.
func (s *BoltBackend) GetNote(id uint64) (*NoteRecord, error) {
	var note *NoteRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		k := itob(id)
		v := tx.Bucket(notesBucket).Get(k)
		if v == nil {
			return fmt.Errorf("note %d: %w", id, ErrNotFound)
		}
		var err error
		note, err = decodeNote(k, v)
		return err
	})
	return note, err
}

// ListNotes implements Backend.
func (s *BoltBackend) ListNotes(limit, offset int) ([]*NoteRecord, error) {
	opts := ListOptions{Limit: limit, Offset: offset}
	limit, skip := opts.limit(), opts.offset()
	var out []*NoteRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(notesBucket).Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			if skip > 0 {
				skip--
				continue
			}
			note, err := decodeNote(k, v)
			if err != nil {
				return err
			}
			out = append(out, note)
		}
		return nil
	})
	return out, err
}

// UpdateNote implements Backend.
func (s *BoltBackend) UpdateNote(id uint64, content string, encrypted bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		notes := tx.Bucket(notesBucket)
		k := itob(id)
		v := notes.Get(k)
		if v == nil {
			return fmt.Errorf("note %d: %w", id, ErrNotFound)
		}
		note, err := decodeNote(k, v)
		if err != nil {
			return err
		}
		note.Content, note.Encrypted = content, encrypted
		return putNote(notes, note)
	})
}

// DeleteNote implements Backend.
func (s *BoltBackend) DeleteNote(id uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		notes := tx.Bucket(notesBucket)
		k := itob(id)
		if notes.Get(k) == nil {
			return fmt.Errorf("note %d: %w", id, ErrNotFound)
		}
		return notes.Delete(k)
	})
}

// ClearNotes implements Backend.
func (s *BoltBackend) ClearNotes() (int, error) {
	var n int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		notes := tx.Bucket(notesBucket)
		n = notes.Stats().KeyN
		seq := notes.Sequence()
		if err := tx.DeleteBucket(notesBucket); err != nil {
			return err
		}
		notes, err := tx.CreateBucket(notesBucket)
		if err != nil {
			return err
		}
		return notes.SetSequence(seq)
	})
	return n, err
}

// Close closes the database file.
func (s *BoltBackend) Close() error {
	return s.db.Close()
}
