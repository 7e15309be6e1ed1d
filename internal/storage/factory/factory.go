// Package factory picks the storage.KV backend named in the config.
// It lives apart from package storage because every backend imports
// storage for the KV contract.
package factory

import (
	"fmt"

	"github.com/aanand-mishra/students-roster/internal/config"
	"github.com/aanand-mishra/students-roster/internal/storage"
	"github.com/aanand-mishra/students-roster/internal/storage/memory"
	"github.com/aanand-mishra/students-roster/internal/storage/redis"
	"github.com/aanand-mishra/students-roster/internal/storage/sqlite"
)

// New opens the backend selected by cfg.Storage.Backend.
func New(cfg *config.Config) (storage.KV, error) {
	switch cfg.Storage.Backend {
	case "", config.BackendSQLite:
		s, err := sqlite.New(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		r, err := redis.New(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
