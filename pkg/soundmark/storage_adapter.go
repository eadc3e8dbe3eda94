package soundmark

import (
	"fmt"
	"strings"

	"github.com/himanishpuri/soundmark/pkg/soundmark/storage"
)

// Backend names a storage implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"

	defaultBadgerDir = "soundmark.badger"
)

// ParseBackend accepts "sqlite" or "badger", case-insensitively. An empty
// name selects SQLite.
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case "", BackendSQLite:
		return BackendSQLite, nil
	case BackendBadger:
		return BackendBadger, nil
	default:
		return "", fmt.Errorf("unknown storage backend %q (want sqlite or badger)", name)
	}
}

// NewSQLiteStorage opens a relational store in the file at dbPath.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// NewBadgerStorage opens a key-value store in dir.
func NewBadgerStorage(dir string) (Storage, error) {
	kv, err := storage.NewKVClient(dir)
	if err != nil {
		return nil, err
	}
	return kv, nil
}

func openStorage(cfg *Config) (Storage, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		path := cfg.DBPath
		if path == "" {
			path = storage.DefaultDBFile
		}
		return NewSQLiteStorage(path)
	case BackendBadger:
		dir := cfg.DBPath
		if dir == "" {
			dir = defaultBadgerDir
		}
		return NewBadgerStorage(dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
