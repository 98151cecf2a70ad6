package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	body      []byte
	expiresAt time.Time
}

// Memory is an in-process TTL cache. A janitor goroutine drops expired
// entries every TTL; Close stops it.
type Memory struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]entry

	shutdown  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemory returns a Memory cache. A non-positive ttl disables caching.
func NewMemory(ttl time.Duration, opts ...Option) *Memory {
	o := buildOptions(opts)
	m := &Memory{
		ttl:      ttl,
		now:      o.now,
		items:    make(map[string]entry),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go m.janitor(ttl)
	} else {
		close(m.done)
	}
	return m
}

// Get returns the body under key unless it has expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.items[key]; ok && !m.now().Before(cur.expiresAt) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.body, true, nil
}

// Put stores a copy of body under key.
func (m *Memory) Put(_ context.Context, key string, body []byte) error {
	if m.ttl <= 0 {
		return nil
	}
	b := make([]byte, len(body))
	copy(b, body)
	m.mu.Lock()
	m.items[key] = entry{body: b, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the janitor and waits for it to exit.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.shutdown) })
	<-m.done
	return nil
}

func (m *Memory) janitor(every time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.shutdown:
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

func (m *Memory) removeExpired() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.items {
		if !now.Before(e.expiresAt) {
			delete(m.items, k)
		}
	}
}
