package cache

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory is an in-process LRU cache with per-entry TTL and an injectable
// clock for deterministic tests.
type Memory struct {
	entries    *lru.Cache[string, memoryEntry]
	defaultTTL time.Duration
	now        func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithClock substitutes the time source. Tests use this to expire entries
// deterministically.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates a memory cache holding at most maxEntries entries, with
// the given default TTL for writes that do not specify one.
func NewMemory(maxEntries int, defaultTTL time.Duration, opts ...MemoryOption) (*Memory, error) {
	if maxEntries < 10 {
		maxEntries = 10
	}
	entries, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		return nil, err
	}
	m := &Memory{
		entries:    entries,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Get returns the payload for key if present and not expired. Expired
// entries are evicted on read.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	entry, ok := m.entries.Get(key)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	if m.now().After(entry.expiresAt) {
		m.entries.Remove(key)
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return entry.value, true
}

// Set stores the payload under key for ttl.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.entries.Add(key, memoryEntry{value: value, expiresAt: m.now().Add(ttl)})
}

// Invalidate drops the entry for key.
func (m *Memory) Invalidate(_ context.Context, key string) {
	m.entries.Remove(key)
}

// Purge drops every entry.
func (m *Memory) Purge() {
	m.entries.Purge()
}

// Stats returns hit/miss counters and the current entry count.
func (m *Memory) Stats() (hits, misses int64, size int) {
	return m.hits.Load(), m.misses.Load(), m.entries.Len()
}
