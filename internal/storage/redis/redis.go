// Package redis provides a Redis-backed storage.KV.
//
// Keys are namespaced with a configurable prefix so several rosters (or
// other applications) can share one Redis database. Every call gets its
// own timeout; the roster treats storage as synchronous and never waits
// on it indefinitely.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aanand-mishra/students-roster/internal/config"
	"github.com/aanand-mishra/students-roster/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Redis is the concrete implementation of storage.KV.
type Redis struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// New connects to the server in cfg.Storage.Redis and verifies the
// connection with a PING.
func New(cfg *config.Config) (*Redis, error) {
	rc := cfg.Storage.Redis

	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	r := &Redis{
		client:  client,
		prefix:  rc.Prefix,
		timeout: rc.Timeout,
	}
	if r.timeout <= 0 {
		r.timeout = 3 * time.Second
	}

	ctx, cancel := r.context()
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis.New: ping %s: %w", rc.Addr, err)
	}

	return r, nil
}

func (r *Redis) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *Redis) key(key string) string {
	return r.prefix + key
}

// Load fetches the value stored under key. redis.Nil means the key was
// never written.
func (r *Redis) Load(key string) ([]byte, error) {
	ctx, cancel := r.context()
	defer cancel()

	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrKeyNotFound
		}
		return nil, fmt.Errorf("Load: get %s: %w: %v", key, storage.ErrLoadFailed, err)
	}

	return value, nil
}

// Save writes every entry in a single MULTI/EXEC block.
func (r *Redis) Save(entries ...storage.Entry) error {
	ctx, cancel := r.context()
	defer cancel()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.Set(ctx, r.key(e.Key), e.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("Save: exec: %w: %v", storage.ErrSaveFailed, err)
	}

	return nil
}

// Close closes the client and its connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
