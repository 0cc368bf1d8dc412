package broadcast

import (
	"context"
	"sync"
)

// Change announces that a collection key was rewritten. NewValue is the
// serialized collection as written; receivers should re-read through the
// store instead of trusting it.
type Change struct {
	Key      string `json:"key"`
	NewValue string `json:"newValue"`
	Origin   string `json:"origin"`
}

// Bus delivers changes between processes sharing one backend.
//
// Delivery is fire-and-forget: there is no acknowledgement, no ordering
// guarantee across keys, and no replay for subscribers that were not
// listening when a change was published. A missed change is only healed by
// cache expiry.
type Bus interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(fn func(Change)) (cancel func())
	Close() error
}

type subscribers struct {
	mu   sync.RWMutex
	next int
	fns  map[int]func(Change)
}

func (s *subscribers) add(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(Change))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

func (s *subscribers) deliver(change Change) {
	s.mu.RLock()
	fns := make([]func(Change), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}

// MemoryBus fans changes out synchronously inside one process. Several
// accessors with distinct origins on one MemoryBus behave like several open
// tabs of the same app.
type MemoryBus struct {
	subs subscribers
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(_ context.Context, change Change) error {
	b.subs.deliver(change)
	return nil
}

func (b *MemoryBus) Subscribe(fn func(Change)) func() {
	return b.subs.add(fn)
}

func (b *MemoryBus) Close() error {
	return nil
}

// NoopBus drops every change; used when sync is disabled.
type NoopBus struct{}

func (NoopBus) Publish(context.Context, Change) error { return nil }

func (NoopBus) Subscribe(func(Change)) func() { return func() {} }

func (NoopBus) Close() error { return nil }
