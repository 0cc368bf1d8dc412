package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"kasbook/backend/internal/store"
)

const keyPrefix = "kasbook:"

// Store keeps each key as a plain Redis string, so several processes pointed
// at one Redis share state the way browser tabs share local storage.
type Store struct {
	client        *goredis.Client
	maxValueBytes int
}

// New pings the server before returning.
func New(ctx context.Context, client *goredis.Client, maxValueBytes int) (*Store, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &Store{client: client, maxValueBytes: maxValueBytes}, nil
}

func (s *Store) Read(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis: get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Write(ctx context.Context, key, value string) error {
	if s.maxValueBytes > 0 && len(value) > s.maxValueBytes {
		return fmt.Errorf("redis: set %q (%d bytes): %w", key, len(value), store.ErrQuotaExceeded)
	}
	if err := s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		if isOOM(err) {
			return fmt.Errorf("redis: set %q: %w: %v", key, store.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("redis: set %q: %w", key, err)
	}
	return nil
}

// Close is a no-op; the client is shared with the broadcast bus and closed
// by its owner.
func (s *Store) Close() error {
	return nil
}

func isOOM(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM")
}
