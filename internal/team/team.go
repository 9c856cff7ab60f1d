// Package team exposes the read-only team catalog used to resolve team
// identifiers into display labels on the base info form.
package team

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
)

// Team is one team/affiliation a member can belong to.
type Team struct {
	ID   string
	Name string
}

// Store lists the team catalog.
type Store interface {
	List(ctx context.Context) ([]Team, error)
}

// InMemoryStore serves a fixed catalog for tests and local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	teams map[string]string
}

func NewInMemoryStore(teams map[string]string) *InMemoryStore {
	copied := make(map[string]string, len(teams))
	for id, name := range teams {
		copied[id] = name
	}
	return &InMemoryStore{teams: copied}
}

func (s *InMemoryStore) List(_ context.Context) ([]Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Team, 0, len(s.teams))
	for id, name := range s.teams {
		out = append(out, Team{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PostgresStore reads the catalog from the teams table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context) ([]Team, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM teams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}
