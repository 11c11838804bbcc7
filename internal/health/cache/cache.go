// Package cache provides the short-TTL storage for domain health
// snapshots. Deployments with a single node use the in-memory cache;
// multi-node deployments share results through redis.
package cache

import (
	"context"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/health/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

// Cache stores health snapshots keyed by domain name. Implementations own
// their TTL. Get reports a miss with ok=false; err is reserved for
// infrastructure failures, which callers treat as a miss.
type Cache interface {
	Get(ctx context.Context, name domain.DomainName) (health *models.DomainHealth, ok bool, err error)
	Set(ctx context.Context, health *models.DomainHealth) error
}
