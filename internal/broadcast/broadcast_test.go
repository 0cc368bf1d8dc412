package broadcast

import (
	"context"
	"testing"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	var a, b []Change
	bus.Subscribe(func(c Change) { a = append(a, c) })
	bus.Subscribe(func(c Change) { b = append(b, c) })

	require.NoError(t, bus.Publish(context.Background(), Change{Key: "products", NewValue: "[]", Origin: "tab-1"}))

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, "products", a[0].Key)
	assert.Equal(t, "tab-1", b[0].Origin)
}

func TestMemoryBusCancel(t *testing.T) {
	bus := NewMemoryBus()
	count := 0
	cancel := bus.Subscribe(func(Change) { count++ })

	_ = bus.Publish(context.Background(), Change{Key: "debts"})
	cancel()
	_ = bus.Publish(context.Background(), Change{Key: "debts"})

	assert.Equal(t, 1, count)
}

func TestMemoryBusNoReplay(t *testing.T) {
	bus := NewMemoryBus()
	_ = bus.Publish(context.Background(), Change{Key: "contacts"})

	count := 0
	bus.Subscribe(func(Change) { count++ })
	assert.Zero(t, count)
}

func TestNoopBus(t *testing.T) {
	var bus Bus = NoopBus{}
	called := false
	cancel := bus.Subscribe(func(Change) { called = true })
	defer cancel()

	require.NoError(t, bus.Publish(context.Background(), Change{Key: "x"}))
	assert.False(t, called)
	assert.NoError(t, bus.Close())
}

func TestRedisBusSubscribeAfterCloseStaysIdle(t *testing.T) {
	// The client is lazy; nothing dials as long as no receive loop starts.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	bus := NewRedisBus(client, "", zerolog.Nop())

	require.NoError(t, bus.Close())
	cancel := bus.Subscribe(func(Change) {})
	cancel()

	bus.mu.Lock()
	assert.Nil(t, bus.pubsub)
	bus.mu.Unlock()
	require.NoError(t, bus.Close())
}
