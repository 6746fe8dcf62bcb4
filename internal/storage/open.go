package storage

import (
	"fmt"

	"go.uber.org/zap"
)

// Open opens the backend named by driver ("bolt" or "sqlite") at path.
func Open(driver, path string, logger *zap.Logger) (Backend, error) {
	switch driver {
	case "bolt", "":
		return NewBoltBackend(BoltConfig{DBPath: path, Logger: logger})
	case "sqlite":
		return NewSQLiteBackend(SQLiteConfig{DBPath: path, Logger: logger})
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}

// OpenHistory opens the backend and wraps it in a History.
func OpenHistory(driver, path string, opts HistoryOptions) (*History, error) {
	backend, err := Open(driver, path, opts.Logger)
	if err != nil {
		return nil, err
	}
	h, err := NewHistory(backend, opts)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return h, nil
}
