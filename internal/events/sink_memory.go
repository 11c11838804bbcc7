package events

import (
	"context"
	"sync"
)

// MemorySink records events for tests and for the in-memory wiring used in
// single-node development.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything published so far.
func (s *MemorySink) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}

// TypesSeen returns the event types in publish order.
func (s *MemorySink) TypesSeen() []Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Type, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}
