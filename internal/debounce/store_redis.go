package debounce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

const debounceKeyPrefix = "convocommerce:debounce:"

// RedisStore shares the debounce window across instances so a fleet
// re-verifies each domain once per interval instead of once per node.
// Keys expire with the window itself, so a miss means the window is open.
type RedisStore struct {
	client *redis.Client
	window time.Duration
}

// NewRedisStore builds the shared debounce store. window should be the
// verification interval.
func NewRedisStore(client *redis.Client, window time.Duration) *RedisStore {
	return &RedisStore{client: client, window: window}
}

func (s *RedisStore) LastVerified(ctx context.Context, name domain.DomainName) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, debounceKeyPrefix+name.String()).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("debounce get: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// Unreadable mark from an older build; treat the window as open.
		_ = s.client.Del(ctx, debounceKeyPrefix+name.String()).Err()
		return time.Time{}, false, nil
	}
	return at, true, nil
}

func (s *RedisStore) MarkVerified(ctx context.Context, name domain.DomainName, at time.Time) error {
	value := at.UTC().Format(time.RFC3339Nano)
	if err := s.client.Set(ctx, debounceKeyPrefix+name.String(), value, s.window).Err(); err != nil {
		return fmt.Errorf("debounce set: %w", err)
	}
	return nil
}
