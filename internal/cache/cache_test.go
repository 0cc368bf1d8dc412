package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTTLCacheExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTLCache(5*time.Second, clock.Now)

	c.Set("products", []byte(`[]`))
	got, ok := c.Get("products")
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(got))

	clock.Advance(4999 * time.Millisecond)
	_, ok = c.Get("products")
	assert.True(t, ok)

	clock.Advance(time.Millisecond)
	_, ok = c.Get("products")
	assert.False(t, ok)
}

func TestTTLCacheInvalidate(t *testing.T) {
	c := NewTTLCache(time.Minute, nil)
	c.Set("debts", []byte(`[1]`))
	c.Set("contacts", []byte(`[2]`))

	c.Invalidate("debts")

	_, ok := c.Get("debts")
	assert.False(t, ok)
	_, ok = c.Get("contacts")
	assert.True(t, ok)
}

func TestTTLCacheCopiesPayload(t *testing.T) {
	c := NewTTLCache(time.Minute, nil)
	payload := []byte(`[1]`)
	c.Set("k", payload)
	payload[1] = '9'

	got, _ := c.Get("k")
	assert.Equal(t, `[1]`, string(got))
}

func TestNoopCacheNeverHits(t *testing.T) {
	var c CollectionCache = NoopCache{}
	c.Set("k", []byte(`[]`))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, 5*time.Second, NewTTLCache(0, nil).TTL())
}
