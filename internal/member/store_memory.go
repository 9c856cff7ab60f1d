package member

import (
	"context"
	"fmt"
	"sync"

	"roster/pkg/platform/sentinel"
)

// InMemoryStore keeps member records in memory for tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	members map[string]Member
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{members: make(map[string]Member)}
}

// Seed inserts or replaces a member record.
func (s *InMemoryStore) Seed(m Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.Username] = m
}

func (s *InMemoryStore) Get(_ context.Context, username string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[username]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", username, sentinel.ErrNotFound)
	}
	copied := m
	copied.Teams = append([]string{}, m.Teams...)
	copied.PreviousTeams = append([]string{}, m.PreviousTeams...)
	copied.Missions = CloneMissions(m.Missions)
	return &copied, nil
}

func (s *InMemoryStore) ApplyBaseInfo(_ context.Context, username string, info BaseInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[username]
	if !ok {
		return fmt.Errorf("member %s: %w", username, sentinel.ErrNotFound)
	}
	m.Role = info.Role
	m.Teams = append([]string{}, info.Teams...)
	m.PreviousTeams = append([]string{}, info.PreviousTeams...)
	m.Missions = CloneMissions(info.Missions)
	s.members[username] = m
	return nil
}
