package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/agentic-research/dashlens/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeClock is safe to read from the janitor goroutine.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// exerciseTTL runs the contract every backend must meet.
func exerciseTTL(t *testing.T, c Cache, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "https://api.example.com/a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "https://api.example.com/a", []byte(`{"a":1}`)))
	body, ok, err := c.Get(ctx, "https://api.example.com/a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(body))

	clock.Advance(29 * time.Second)
	_, ok, err = c.Get(ctx, "https://api.example.com/a")
	require.NoError(t, err)
	assert.True(t, ok, "still fresh before the TTL")

	clock.Advance(time.Second)
	_, ok, err = c.Get(ctx, "https://api.example.com/a")
	require.NoError(t, err)
	assert.False(t, ok, "expired at the TTL")

	// Replacing an entry restarts its TTL.
	require.NoError(t, c.Put(ctx, "k", []byte("1")))
	clock.Advance(20 * time.Second)
	require.NoError(t, c.Put(ctx, "k", []byte("2")))
	clock.Advance(20 * time.Second)
	body, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", string(body))
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

func TestMemory_TTL(t *testing.T) {
	defer goleak.VerifyNone(t)
	clock := newFakeClock()
	m := NewMemory(30*time.Second, WithClock(clock.Now))
	defer m.Close()
	exerciseTTL(t, m, clock)
}

func TestMemory_StoresCopy(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := NewMemory(time.Minute)
	defer m.Close()

	body := []byte("abc")
	require.NoError(t, m.Put(context.Background(), "k", body))
	body[0] = 'x'
	got, _, _ := m.Get(context.Background(), "k")
	assert.Equal(t, "abc", string(got))
}

func TestMemory_RemoveExpired(t *testing.T) {
	defer goleak.VerifyNone(t)
	clock := newFakeClock()
	m := NewMemory(time.Minute, WithClock(clock.Now))
	defer m.Close()

	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "old", []byte("1")))
	clock.Advance(45 * time.Second)
	require.NoError(t, m.Put(ctx, "new", []byte("2")))
	clock.Advance(30 * time.Second)

	m.removeExpired()
	assert.Equal(t, 1, m.Len())
}

func TestMemory_ZeroTTLDisables(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := NewMemory(0)
	require.NoError(t, m.Put(context.Background(), "k", []byte("v")))
	_, ok, _ := m.Get(context.Background(), "k")
	assert.False(t, ok)
	require.NoError(t, m.Close())
}

func TestMemory_CloseIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := NewMemory(time.Second)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestMemory_Concurrent(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := NewMemory(time.Minute)
	defer m.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.Put(ctx, "shared", []byte("v"))
				_, _, _ = m.Get(ctx, "shared")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, m.Len())
}

// ---------------------------------------------------------------------------
// SQLite
// ---------------------------------------------------------------------------

func TestSQLite_TTL(t *testing.T) {
	clock := newFakeClock()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache.db"), 30*time.Second, WithClock(clock.Now))
	require.NoError(t, err)
	defer s.Close()
	exerciseTTL(t, s, clock)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	clock := newFakeClock()

	s, err := OpenSQLite(ctx, path, time.Minute, WithClock(clock.Now))
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "fresh", []byte("1")))
	clock.Advance(50 * time.Second)
	require.NoError(t, s.Put(ctx, "later", []byte("2")))
	require.NoError(t, s.Close())

	clock.Advance(20 * time.Second)
	s, err = OpenSQLite(ctx, path, time.Minute, WithClock(clock.Now))
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, ok, "expired rows are purged on open")

	body, ok, err := s.Get(ctx, "later")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", string(body))

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ---------------------------------------------------------------------------
// Redis (needs a server)
// ---------------------------------------------------------------------------

func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("DASHLENS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DASHLENS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	r := NewRedis(client, time.Minute)
	defer r.Close()

	key := "test-" + time.Now().Format(time.RFC3339Nano)
	_, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Put(ctx, key, []byte(`[1,2]`)))
	body, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1,2]`, string(body))

	ttl, err := client.TTL(ctx, KeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpen(t *testing.T) {
	ctx := context.Background()

	cfg := config.DefaultConfig()
	c, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
	require.NoError(t, c.Close())

	cfg.Cache.Backend = config.BackendNone
	c, err = Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "k", []byte("v")))
	_, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)

	cfg.Cache.Backend = config.BackendSQLite
	cfg.Cache.Path = filepath.Join(t.TempDir(), "open.db")
	c, err = Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, c)
	require.NoError(t, c.Close())

	cfg.Cache.Backend = "memcached"
	_, err = Open(ctx, cfg)
	assert.Error(t, err)
}
