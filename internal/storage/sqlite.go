package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/berrythewa/clipstack/internal/types"
)

// schemaVersion is the latest schema version. Bump it when adding migrations.
const schemaVersion = 1

var migrations = map[int]string{
	1: `
CREATE TABLE IF NOT EXISTS clip_items (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at   INTEGER NOT NULL,
    kind         INTEGER NOT NULL,
    text_content TEXT,
    image_blob   BLOB,
    html_content TEXT,
    favorite     INTEGER NOT NULL DEFAULT 0,
    encrypted    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_clip_items_created ON clip_items(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_clip_items_fav ON clip_items(favorite, id DESC);

CREATE TABLE IF NOT EXISTS notes (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at INTEGER NOT NULL,
    content    TEXT NOT NULL,
    encrypted  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_notes_created ON notes(created_at DESC);
`,
}

// SQLiteConfig holds configuration for SQLiteBackend initialization
type SQLiteConfig struct {
	DBPath string
	Logger *zap.Logger
}

// SQLiteBackend stores history in a SQLite file. It keeps a single
// connection, so statements are serialized.
type SQLiteBackend struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type clipRow struct {
	ID        int64          `db:"id"`
	CreatedAt int64          `db:"created_at"`
	Kind      int            `db:"kind"`
	Text      sql.NullString `db:"text_content"`
	Image     []byte         `db:"image_blob"`
	HTML      sql.NullString `db:"html_content"`
	Favorite  bool           `db:"favorite"`
	Encrypted bool           `db:"encrypted"`
}

func (r *clipRow) record() *Record {
	return &Record{
		ID:        uint64(r.ID),
		CreatedAt: time.Unix(0, r.CreatedAt),
		Kind:      types.Kind(r.Kind),
		Text:      r.Text.String,
		Image:     r.Image,
		HTML:      r.HTML.String,
		Favorite:  r.Favorite,
		Encrypted: r.Encrypted,
	}
}

type noteRow struct {
	ID        int64  `db:"id"`
	CreatedAt int64  `db:"created_at"`
	Content   string `db:"content"`
	Encrypted bool   `db:"encrypted"`
}

func (r *noteRow) record() *NoteRecord {
	return &NoteRecord{
		ID:        uint64(r.ID),
		CreatedAt: time.Unix(0, r.CreatedAt),
		Content:   r.Content,
		Encrypted: r.Encrypted,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// NewSQLiteBackend opens the database in WAL mode and applies migrations.
func NewSQLiteBackend(config SQLiteConfig) (*SQLiteBackend, error) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(config.DBPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := config.DBPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", config.DBPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(config.DBPath, 0600)

	logger.Debug("SQLiteBackend initialized", zap.String("db_path", config.DBPath))
	return &SQLiteBackend{db: db, logger: logger}, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sqlx.DB) error {
	var version int
	if err := db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion)
	}
	for v := version + 1; v <= schemaVersion; v++ {
		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", v, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("run migration %d: %w", v, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", v, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", v, err)
		}
	}
	return nil
}

func notFound(what string, id uint64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("get %s %d: %w", what, id, err)
}

// Append implements Backend.
func (s *SQLiteBackend) Append(rec *Record, skip func(last *Record) bool) (bool, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback()

	if skip != nil {
		var last clipRow
		err := tx.Get(&last, "SELECT * FROM clip_items ORDER BY id DESC LIMIT 1")
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return false, fmt.Errorf("failed to read last record: %w", err)
		case skip(last.record()):
			return false, nil
		}
	}

	res, err := tx.Exec(`
		INSERT INTO clip_items (created_at, kind, text_content, image_blob, html_content, favorite, encrypted)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.CreatedAt.UnixNano(), int(rec.Kind), nullString(rec.Text), nullBytes(rec.Image),
		nullString(rec.HTML), rec.Favorite, rec.Encrypted)
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to read inserted id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit append: %w", err)
	}
	rec.ID = uint64(id)
	s.logger.Debug("Record appended", zap.Uint64("id", rec.ID), zap.Stringer("kind", rec.Kind))
	return true, nil
}

// Get implements Backend.
func (s *SQLiteBackend) Get(id uint64) (*Record, error) {
	var row clipRow
	if err := s.db.Get(&row, "SELECT * FROM clip_items WHERE id = ?", int64(id)); err != nil {
		return nil, notFound("clip", id, err)
	}
	return row.record(), nil
}

// List implements Backend.
func (s *SQLiteBackend) List(opts ListOptions) ([]*Record, error) {
	query := "SELECT * FROM clip_items"
	if opts.FavoritesOnly {
		query += " WHERE favorite = 1"
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"

	var rows []clipRow
	if err := s.db.Select(&rows, query, opts.limit(), opts.offset()); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := make([]*Record, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].record())
	}
	return out, nil
}

// Count implements Backend.
func (s *SQLiteBackend) Count(favoritesOnly bool) (int, error) {
	query := "SELECT COUNT(*) FROM clip_items"
	if favoritesOnly {
		query += " WHERE favorite = 1"
	}
	var n int
	if err := s.db.Get(&n, query); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Scan implements Backend. fn must not call back into the backend: the
// only connection is busy until Scan returns.
func (s *SQLiteBackend) Scan(fn func(rec *Record) bool) error {
	rows, err := s.db.Queryx("SELECT * FROM clip_items ORDER BY id DESC")
	if err != nil {
		return fmt.Errorf("scan records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row clipRow
		if err := rows.StructScan(&row); err != nil {
			return fmt.Errorf("scan record: %w", err)
		}
		if !fn(row.record()) {
			return nil
		}
	}
	return rows.Err()
}

func (s *SQLiteBackend) execAffected(query string, args ...any) (int, error) {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Delete implements Backend.
func (s *SQLiteBackend) Delete(id uint64) error {
	n, err := s.execAffected("DELETE FROM clip_items WHERE id = ?", int64(id))
	if err != nil {
		return fmt.Errorf("delete clip %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("clip %d: %w", id, ErrNotFound)
	}
	return nil
}

// Clear implements Backend. AUTOINCREMENT keeps ids from being reused.
func (s *SQLiteBackend) Clear() (int, error) {
	n, err := s.execAffected("DELETE FROM clip_items")
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	s.logger.Info("History cleared", zap.Int("deleted_items", n))
	return n, nil
}

// SetFavorite implements Backend.
func (s *SQLiteBackend) SetFavorite(id uint64, favorite bool) error {
	n, err := s.execAffected("UPDATE clip_items SET favorite = ? WHERE id = ?", favorite, int64(id))
	if err != nil {
		return fmt.Errorf("set favorite %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("clip %d: %w", id, ErrNotFound)
	}
	return nil
}

// ToggleFavorite implements Backend.
func (s *SQLiteBackend) ToggleFavorite(id uint64) (bool, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin toggle: %w", err)
	}
	defer tx.Rollback()

	var favorite bool
	if err := tx.Get(&favorite, "SELECT favorite FROM clip_items WHERE id = ?", int64(id)); err != nil {
		return false, notFound("clip", id, err)
	}
	favorite = !favorite
	if _, err := tx.Exec("UPDATE clip_items SET favorite = ? WHERE id = ?", favorite, int64(id)); err != nil {
		return false, fmt.Errorf("toggle favorite %d: %w", id, err)
	}
	return favorite, tx.Commit()
}

// DeleteBefore implements Backend with a single DELETE statement.
func (s *SQLiteBackend) DeleteBefore(cutoff time.Time, keepFavorites bool) (int, error) {
	query := "DELETE FROM clip_items WHERE created_at < ?"
	if keepFavorites {
		query += " AND favorite = 0"
	}
	n, err := s.execAffected(query, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete expired records: %w", err)
	}
	return n, nil
}

// TrimTo implements Backend with a single DELETE statement.
func (s *SQLiteBackend) TrimTo(max int, keepFavorites bool) (int, error) {
	if max < 0 {
		max = 0
	}
	scope := "1 = 1"
	if keepFavorites {
		scope = "favorite = 0"
	}
	query := fmt.Sprintf(`
		DELETE FROM clip_items
		WHERE %[1]s AND id NOT IN (
			SELECT id FROM clip_items WHERE %[1]s ORDER BY id DESC LIMIT ?
		)`, scope)
	n, err := s.execAffected(query, max)
	if err != nil {
		return 0, fmt.Errorf("trim records: %w", err)
	}
	return n, nil
}

// AddNote implements Backend.
func (s *SQLiteBackend) AddNote(note *NoteRecord) error {
	res, err := s.db.Exec("INSERT INTO notes (created_at, content, encrypted) VALUES (?, ?, ?)",
		note.CreatedAt.UnixNano(), note.Content, note.Encrypted)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted note id: %w", err)
	}
	note.ID = uint64(id)
	return nil
}

// GetNote implements Backend.
func (s *SQLiteBackend) GetNote(id uint64) (*NoteRecord, error) {
	var row noteRow
	if err := s.db.Get(&row, "SELECT * FROM notes WHERE id = ?", int64(id)); err != nil {
		return nil, notFound("note", id, err)
	}
	return row.record(), nil
}

// ListNotes implements Backend.
func (s *SQLiteBackend) ListNotes(limit, offset int) ([]*NoteRecord, error) {
	opts := ListOptions{Limit: limit, Offset: offset}
	var rows []noteRow
	if err := s.db.Select(&rows, "SELECT * FROM notes ORDER BY id DESC LIMIT ? OFFSET ?", opts.limit(), opts.offset()); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	out := make([]*NoteRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].record())
	}
	return out, nil
}

// UpdateNote implements Backend.
func (s *SQLiteBackend) UpdateNote(id uint64, content string, encrypted bool) error {
	n, err := s.execAffected("UPDATE notes SET content = ?, encrypted = ? WHERE id = ?", content, encrypted, int64(id))
	if err != nil {
		return fmt.Errorf("update note %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteNote implements Backend.
func (s *SQLiteBackend) DeleteNote(id uint64) error {
	n, err := s.execAffected("DELETE FROM notes WHERE id = ?", int64(id))
	if err != nil {
		return fmt.Errorf("delete note %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	return nil
}

// ClearNotes implements Backend.
func (s *SQLiteBackend) ClearNotes() (int, error) {
	n, err := s.execAffected("DELETE FROM notes")
	if err != nil {
		return 0, fmt.Errorf("clear notes: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
