package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"roster/pkg/platform/audit"
)

// Store implements audit.Store using a transactional outbox. Events are
// written to the audit_outbox table and published to Kafka by the outbox
// worker; the table keeps them queryable even when Kafka is not configured.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes an audit event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_outbox (id, actor_id, subject, action, metadata, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.New(), event.ActorID, event.Subject, event.Action, metadata, event.RequestID, timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListBySubject returns recorded events for one member, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	query := `
		SELECT actor_id, subject, action, metadata, request_id, created_at
		FROM audit_outbox
		WHERE subject = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var event audit.Event
		var metadata []byte
		if err := rows.Scan(&event.ActorID, &event.Subject, &event.Action, &metadata, &event.RequestID, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// OutboxEntry is one unpublished row handed to the Kafka worker.
type OutboxEntry struct {
	ID        uuid.UUID
	ActorID   string
	Subject   string
	Action    string
	Metadata  []byte
	RequestID string
	CreatedAt time.Time
}

// FetchUnpublished returns up to limit events not yet published to Kafka,
// oldest first.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, actor_id, subject, action, metadata, request_id, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished audit events: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Subject, &entry.Action, &entry.Metadata, &entry.RequestID, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MarkPublished stamps entries as delivered so they are not re-sent.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	query := `UPDATE audit_outbox SET published_at = NOW() WHERE id = ANY($1)`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}
