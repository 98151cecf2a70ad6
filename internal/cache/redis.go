package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces dashlens entries in a shared Redis.
const KeyPrefix = "dashlens:fetch:"

// Redis stores entries with SET EX, so expiry is enforced by the server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps client. The cache owns client and closes it on Close.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := r.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return body, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, body []byte) error {
	if r.ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, KeyPrefix+key, body, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
