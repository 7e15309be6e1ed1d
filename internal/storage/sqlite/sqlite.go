// Package sqlite provides a SQLite-backed implementation of the
// storage.KV interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// The roster only ever stores two values, but they must survive restarts
// and be written together. SQLite gives us a single file on disk with real
// transactions. No server process, nothing to install beyond the driver.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aanand-mishra/students-roster/internal/config"
	"github.com/aanand-mishra/students-roster/internal/storage"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.KV.
// It holds a *sql.DB which is a connection pool managed by database/sql.
type SQLite struct {
	Db *sql.DB
}

// New opens the SQLite database at cfg.Storage.Path, creates the kv table
// if it does not already exist, and returns a ready-to-use *SQLite.
func New(cfg *config.Config) (*SQLite, error) {
	path := cfg.Storage.Path

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// CREATE TABLE IF NOT EXISTS is idempotent — safe to run on every
	// startup.
	//
	// Schema:
	//   key   — the storage key, e.g. "students"
	//   value — the raw bytes the roster wrote under that key
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value BLOB NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Load fetches the value stored under key.
//
// sql.ErrNoRows is translated to storage.ErrKeyNotFound so the roster can
// tell "never saved" apart from "the database is broken".
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) Load(key string) ([]byte, error) {
	stmt, err := s.Db.Prepare("SELECT value FROM kv WHERE key = ? LIMIT 1")
	if err != nil {
		return nil, fmt.Errorf("Load: prepare: %w: %v", storage.ErrLoadFailed, err)
	}
	defer stmt.Close()

	var value []byte
	err = stmt.QueryRow(key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrKeyNotFound
		}
		return nil, fmt.Errorf("Load: scan %s: %w: %v", key, storage.ErrLoadFailed, err)
	}

	return value, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Save upserts every entry inside one transaction.
//
// Either both roster keys land on disk or neither does: if any statement
// fails the deferred Rollback undoes the earlier ones.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) Save(entries ...storage.Entry) error {
	tx, err := s.Db.Begin()
	if err != nil {
		return fmt.Errorf("Save: begin: %w: %v", storage.ErrSaveFailed, err)
	}
	// Rollback after a successful Commit is a no-op.
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("Save: prepare: %w: %v", storage.ErrSaveFailed, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Key, e.Value); err != nil {
			return fmt.Errorf("Save: exec %s: %w: %v", e.Key, storage.ErrSaveFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Save: commit: %w: %v", storage.ErrSaveFailed, err)
	}

	return nil
}

// Close closes the underlying connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}
