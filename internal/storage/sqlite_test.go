package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteBackendMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	b, err := NewSQLiteBackend(SQLiteConfig{DBPath: path})
	require.NoError(t, err)

	var version int
	require.NoError(t, b.db.Get(&version, "PRAGMA user_version"))
	assert.Equal(t, schemaVersion, version)

	var mode string
	require.NoError(t, b.db.Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)

	ids := appendAll(t, b, textRecord("kept", epoch))
	require.NoError(t, b.Close())

	b, err = NewSQLiteBackend(SQLiteConfig{DBPath: path})
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Text)
}

func TestSQLiteBackendRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	b, err := NewSQLiteBackend(SQLiteConfig{DBPath: path})
	require.NoError(t, err)
	_, err = b.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = NewSQLiteBackend(SQLiteConfig{DBPath: path})
	assert.ErrorContains(t, err, "newer than supported")
}

func TestSQLiteBackendEmptyPayloadsAreNull(t *testing.T) {
	b, err := NewSQLiteBackend(SQLiteConfig{DBPath: filepath.Join(t.TempDir(), "history.sqlite")})
	require.NoError(t, err)
	defer b.Close()

	ids := appendAll(t, b, textRecord("only text", epoch))
	var nulls int
	require.NoError(t, b.db.Get(&nulls,
		"SELECT COUNT(*) FROM clip_items WHERE id = ? AND html_content IS NULL AND image_blob IS NULL", int64(ids[0])))
	assert.Equal(t, 1, nulls)
}
