package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

const pruneThreshold = 4096

// MemoryStore is the default process-local debounce map. Entries older than
// maxAge are pruned whenever the map grows past pruneThreshold, which keeps
// junk Host headers from accumulating.
type MemoryStore struct {
	mu     sync.RWMutex
	maxAge time.Duration
	seen   map[domain.DomainName]time.Time
}

// NewMemoryStore builds the in-memory debounce store. maxAge should be the
// verification interval; older marks are eligible for pruning.
func NewMemoryStore(maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxAge: maxAge,
		seen:   make(map[domain.DomainName]time.Time),
	}
}

func (s *MemoryStore) LastVerified(_ context.Context, name domain.DomainName) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.seen[name]
	return at, ok, nil
}

func (s *MemoryStore) MarkVerified(_ context.Context, name domain.DomainName, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.seen) >= pruneThreshold {
		cutoff := at.Add(-s.maxAge)
		for key, marked := range s.seen {
			if marked.Before(cutoff) {
				delete(s.seen, key)
			}
		}
	}
	s.seen[name] = at
	return nil
}

// Len reports the number of marks currently held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
