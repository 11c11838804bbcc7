package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/health/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/requestcontext"
)

type memoryEntry struct {
	health    models.DomainHealth
	expiresAt time.Time
}

// Memory is a mutex-guarded TTL cache. Expired entries are dropped lazily
// on read and swept whenever the map grows past sweepThreshold, which keeps
// memory bounded by the number of live domains without a janitor goroutine.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[domain.DomainName]memoryEntry
}

const sweepThreshold = 1024

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[domain.DomainName]memoryEntry),
	}
}

func (c *Memory) Get(ctx context.Context, name domain.DomainName) (*models.DomainHealth, bool, error) {
	now := requestcontext.Now(ctx)

	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !now.Before(entry.expiresAt) {
		c.mu.Lock()
		// Another goroutine may have refreshed the entry in between.
		if cur, still := c.entries[name]; still && !now.Before(cur.expiresAt) {
			delete(c.entries, name)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return entry.health.Clone(), true, nil
}

func (c *Memory) Set(ctx context.Context, health *models.DomainHealth) error {
	now := requestcontext.Now(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= sweepThreshold {
		for key, entry := range c.entries {
			if !now.Before(entry.expiresAt) {
				delete(c.entries, key)
			}
		}
	}
	c.entries[domain.DomainName(health.Domain)] = memoryEntry{
		health:    *health.Clone(),
		expiresAt: now.Add(c.ttl),
	}
	return nil
}

// Len reports the number of entries currently held, expired or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
