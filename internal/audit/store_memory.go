package audit

import (
	"context"
	"sync"

	id "staffops/pkg/domain"
)

// InMemoryStore keeps events in memory, per user in append order. Reference
// sink for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.UserID][]Event
	all    []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.UserID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	s.all = append(s.all, event)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[userID]...), nil
}

// All returns every appended event in order. Test helper.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.all...)
}
