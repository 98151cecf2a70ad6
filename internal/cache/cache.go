// Package cache stores fetched response bodies for a fixed time-to-live.
//
// Entries are keyed by request URL and expire only by age; there is no
// explicit invalidation. Backends are interchangeable behind Cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/agentic-research/dashlens/internal/config"
	"github.com/redis/go-redis/v9"
)

// Cache is a TTL cache of response bodies.
type Cache interface {
	// Get returns the body stored under key, if present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores body under key for the cache's TTL.
	Put(ctx context.Context, key string, body []byte) error
	Close() error
}

// Option configures a backend.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the wall clock used to stamp and expire entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open builds the backend selected by cfg.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (Cache, error) {
	ttl := cfg.GetCacheTTL()
	switch cfg.Cache.Backend {
	case config.BackendMemory, "":
		return NewMemory(ttl, opts...), nil
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.Cache.Path, ttl, opts...)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.Cache.RedisAddr, err)
		}
		return NewRedis(client, ttl), nil
	case config.BackendNone:
		return Nop{}, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Put(context.Context, string, []byte) error { return nil }

func (Nop) Close() error { return nil }
