// Package storage defines the KV interface, the contract any key-value
// backend must satisfy to hold the roster between sessions.
//
// WHY AN INTERFACE?
// ─────────────────
// The roster core should not know or care where its bytes end up. It only
// ever needs two operations: load the value under a key, and save a set of
// values together. By depending only on this interface:
//
//   - Switching backends (SQLite file, Redis, in-memory) = change the
//     "storage.backend" config value. Zero roster changes.
//
//   - Writing tests = pass the in-memory backend from storage/memory.
//     No real database needed for unit tests.
package storage

import "errors"

// Sentinel errors shared by every backend.
var (
	// ErrKeyNotFound is returned by Load when nothing is stored under a key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrLoadFailed wraps backend failures while reading.
	ErrLoadFailed = errors.New("load failed")

	// ErrSaveFailed wraps backend failures while writing.
	ErrSaveFailed = errors.New("save failed")
)

// Entry is one key and the raw bytes stored under it.
type Entry struct {
	Key   string
	Value []byte
}

// KV is the key-value store contract.
// Any concrete type that implements ALL of these methods automatically
// satisfies this interface.
type KV interface {
	// Load returns the bytes stored under key, or ErrKeyNotFound.
	Load(key string) ([]byte, error)

	// Save writes every entry, creating or overwriting as needed.
	// Either all entries are written or none are.
	Save(entries ...Entry) error

	// Close releases the backend's resources.
	Close() error
}
