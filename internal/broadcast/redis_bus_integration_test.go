package broadcast

import (
	"context"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("KASBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set KASBOOK_TEST_REDIS_ADDR to run redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	channel := "kasbook:test:" + time.Now().Format("150405.000000")
	sub := NewRedisBus(client, channel, zerolog.Nop())
	pub := NewRedisBus(client, channel, zerolog.Nop())
	t.Cleanup(func() { _ = sub.Close() })

	received := make(chan Change, 1)
	sub.Subscribe(func(c Change) { received <- c })
	// Let the SUBSCRIBE reach the server before publishing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, pub.Publish(context.Background(), Change{Key: "products", NewValue: "[]", Origin: "tab-2"}))

	select {
	case c := <-received:
		require.Equal(t, "products", c.Key)
		require.Equal(t, "tab-2", c.Origin)
	case <-time.After(3 * time.Second):
		t.Fatal("change not delivered")
	}
}

func TestRedisBusCloseRacesSubscribe(t *testing.T) {
	addr := os.Getenv("KASBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set KASBOOK_TEST_REDIS_ADDR to run redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	bus := NewRedisBus(client, "kasbook:test:close", zerolog.Nop())

	started := make(chan struct{})
	go func() {
		defer close(started)
		bus.Subscribe(func(Change) {})
	}()
	require.NoError(t, bus.Close())
	<-started
	require.NoError(t, bus.Close())
}
