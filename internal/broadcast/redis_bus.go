package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus publishes changes on a Redis pub/sub channel so that every
// process attached to the same Redis sees them.
type RedisBus struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
	subs    subscribers

	mu     sync.Mutex
	pubsub *redis.PubSub
	closed bool
	done   chan struct{}
}

func NewRedisBus(client *redis.Client, channel string, log zerolog.Logger) *RedisBus {
	if channel == "" {
		channel = "kasbook:changes"
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		log:     log,
		done:    make(chan struct{}),
	}
}

func (b *RedisBus) Publish(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe starts the receive loop on first use.
func (b *RedisBus) Subscribe(fn func(Change)) func() {
	b.mu.Lock()
	if b.pubsub == nil && !b.closed {
		b.listen()
	}
	b.mu.Unlock()
	return b.subs.add(fn)
}

// listen runs with b.mu held.
func (b *RedisBus) listen() {
	b.pubsub = b.client.Subscribe(context.Background(), b.channel)
	messages := b.pubsub.Channel()
	go func() {
		defer close(b.done)
		for msg := range messages {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				b.log.Warn().Err(err).Str("channel", b.channel).Msg("dropping malformed change")
				continue
			}
			b.subs.deliver(change)
		}
	}()
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	pubsub := b.pubsub
	b.pubsub = nil
	b.closed = true
	b.mu.Unlock()
	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-b.done
	return err
}
