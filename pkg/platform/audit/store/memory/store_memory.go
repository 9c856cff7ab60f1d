package memory

import (
	"context"
	"sync"

	"roster/pkg/platform/audit"
)

// InMemoryStore keeps audit events in memory for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, event := range s.events {
		if event.Subject == subject {
			out = append(out, event)
		}
	}
	return out, nil
}

// All returns every recorded event in append order.
func (s *InMemoryStore) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...)
}
