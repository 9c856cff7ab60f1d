package member

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"roster/pkg/platform/sentinel"
)

// PostgresStore persists member records in PostgreSQL. Missions are stored as
// a JSON document; teams as text arrays.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed member store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, username string) (*Member, error) {
	query := `
		SELECT username, fullname, role, teams, previous_teams, missions
		FROM members
		WHERE username = $1
	`
	var m Member
	var missions []byte
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&m.Username, &m.Fullname, &m.Role,
		pq.Array(&m.Teams), pq.Array(&m.PreviousTeams), &missions,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("member %s: %w", username, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	if len(missions) > 0 {
		if err := json.Unmarshal(missions, &m.Missions); err != nil {
			return nil, fmt.Errorf("unmarshal missions: %w", err)
		}
	}
	return &m, nil
}

// ApplyBaseInfo replaces the mutable base info slice in a single UPDATE so
// concurrent reconciliations cannot interleave partial writes.
func (s *PostgresStore) ApplyBaseInfo(ctx context.Context, username string, info BaseInfo) error {
	missions, err := json.Marshal(info.Missions)
	if err != nil {
		return fmt.Errorf("marshal missions: %w", err)
	}
	query := `
		UPDATE members
		SET role = $2, teams = $3, previous_teams = $4, missions = $5, updated_at = NOW()
		WHERE username = $1
	`
	result, err := s.db.ExecContext(ctx, query, username,
		info.Role, pq.Array(info.Teams), pq.Array(info.PreviousTeams), missions)
	if err != nil {
		return fmt.Errorf("apply base info: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply base info: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("member %s: %w", username, sentinel.ErrNotFound)
	}
	return nil
}
