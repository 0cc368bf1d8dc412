package cache

import (
	"sync"
	"time"
)

// CollectionCache holds the last serialized value read for a collection key.
// Payloads are stored as bytes so every hit decodes a fresh copy and callers
// can never mutate what the cache holds.
type CollectionCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, payload []byte)
	Invalidate(key string)
}

type NoopCache struct{}

func (NoopCache) Get(_ string) ([]byte, bool) { return nil, false }

func (NoopCache) Set(_ string, _ []byte) {}

func (NoopCache) Invalidate(_ string) {}

type entry struct {
	payload  []byte
	storedAt time.Time
}

// TTLCache expires entries a fixed duration after they were stored.
type TTLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

func NewTTLCache(ttl time.Duration, now func() time.Time) *TTLCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &TTLCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
	}
}

func (c *TTLCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.payload, true
}

func (c *TTLCache) Set(key string, payload []byte) {
	stored := make([]byte, len(payload))
	copy(stored, payload)

	c.mu.Lock()
	c.entries[key] = entry{payload: stored, storedAt: c.now()}
	c.mu.Unlock()
}

func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *TTLCache) TTL() time.Duration {
	return c.ttl
}
