package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"kasbook/backend/internal/apperr"
	"kasbook/backend/internal/broadcast"
)

// Collection is the accessor for one stored JSON array of T. Every service
// reads and writes its entities exclusively through one Collection.
type Collection[T any] struct {
	a *accessor
}

func NewCollection[T any](key string, opts Options) *Collection[T] {
	return &Collection[T]{a: newAccessor(key, opts)}
}

func (c *Collection[T]) Key() string {
	return c.a.key
}

// Get returns the whole collection. A value that does not parse is reported
// and read as empty; valid JSON that is not an array is read as empty without
// a report. Only a failing backend yields an error.
func (c *Collection[T]) Get(ctx context.Context) ([]T, error) {
	payload, found, cached, err := c.a.read(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return []T{}, nil
	}

	items, ok, err := decodeArray[T](payload)
	if err != nil {
		if cached {
			c.a.invalidate()
		}
		c.a.parseFailed(err)
		return []T{}, nil
	}
	if !ok {
		c.a.remember([]byte("[]"))
		return []T{}, nil
	}
	if !cached {
		c.a.remember(payload)
	}
	return items, nil
}

// Reload drops the cached copy and reads the backend. Use it to read the
// latest state right before committing a decision based on it.
func (c *Collection[T]) Reload(ctx context.Context) ([]T, error) {
	c.a.invalidate()
	return c.Get(ctx)
}

// Save replaces the stored collection. On failure nothing was persisted and
// the returned error is an *apperr.Error that has already been reported.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		failure := apperr.New(apperr.KindStorage, c.a.messages.Save, fmt.Errorf("%w: %w", apperr.ErrSaveFailed, err))
		c.a.reporter.Report(failure)
		return failure
	}
	return c.a.write(ctx, payload)
}

// Watch registers fn for changes written by other processes. It runs after
// the cache entry was dropped, so fn may call Get for fresh data.
func (c *Collection[T]) Watch(fn func(broadcast.Change)) (cancel func()) {
	return c.a.watch(fn)
}

// Close detaches the collection from the bus.
func (c *Collection[T]) Close() {
	c.a.close()
}

func decodeArray[T any](payload []byte) ([]T, bool, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, false, err
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, err
	}
	if items == nil {
		items = []T{}
	}
	return items, true, nil
}
