package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/health/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

const healthKeyPrefix = "convocommerce:health:"

// Redis shares health snapshots across instances so a multi-node
// deployment probes each domain once per TTL instead of once per node.
// Values are JSON; expiry is handled by redis itself.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, name domain.DomainName) (*models.DomainHealth, bool, error) {
	payload, err := c.client.Get(ctx, healthKeyPrefix+name.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("health cache get: %w", err)
	}

	var health models.DomainHealth
	if err := json.Unmarshal(payload, &health); err != nil {
		// A snapshot written by an older build; drop it and probe fresh.
		_ = c.client.Del(ctx, healthKeyPrefix+name.String()).Err()
		return nil, false, nil
	}
	return &health, true, nil
}

func (c *Redis) Set(ctx context.Context, health *models.DomainHealth) error {
	payload, err := json.Marshal(health)
	if err != nil {
		return fmt.Errorf("health cache encode: %w", err)
	}
	if err := c.client.Set(ctx, healthKeyPrefix+health.Domain, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("health cache set: %w", err)
	}
	return nil
}
