package change

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"roster/internal/review"
	"roster/pkg/platform/sentinel"
	"roster/pkg/requestcontext"
)

// uniqueViolation is the postgres error code raised when the partial unique
// index on (username) WHERE status = 'created' rejects an insert.
const uniqueViolation = "23505"

// PostgresLedger persists pending changes in PostgreSQL. The
// single-open-change invariant is enforced by the storage layer itself: the
// check-and-insert in TryOpen is a single INSERT racing against a partial
// unique index, so two concurrent submissions for one member yield exactly
// one success.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger constructs a PostgreSQL-backed change ledger.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) TryOpen(ctx context.Context, username string, candidate Candidate, ref review.ReviewRef, createdBy string) (*PendingChange, error) {
	payload, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("marshal candidate: %w", err)
	}

	record := &PendingChange{
		ID:        uuid.New(),
		Username:  username,
		Kind:      KindMemberUpdate,
		Status:    StatusCreated,
		ReviewURL: ref.URL,
		ReviewID:  ref.ID,
		Payload:   candidate,
		CreatedAt: requestcontext.Now(ctx),
		CreatedBy: createdBy,
	}

	query := `
		INSERT INTO pending_changes (id, username, kind, status, review_url, review_id, payload, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = l.db.ExecContext(ctx, query,
		record.ID, record.Username, record.Kind, record.Status,
		record.ReviewURL, record.ReviewID, payload, record.CreatedAt, record.CreatedBy)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("open change for %s: %w", username, sentinel.ErrConflict)
		}
		return nil, fmt.Errorf("open pending change: %w", err)
	}
	return record, nil
}

func (l *PostgresLedger) Transition(ctx context.Context, id uuid.UUID, status Status) (*PendingChange, bool, error) {
	if !status.Terminal() {
		return nil, false, fmt.Errorf("transition to %s: %w", status, sentinel.ErrInvalidState)
	}

	// Only created records move; a concurrent or redelivered resolution
	// finds zero rows and falls through to the idempotent read.
	query := `
		UPDATE pending_changes
		SET status = $2
		WHERE id = $1 AND status = $3
		RETURNING id, username, kind, status, review_url, review_id, payload, created_at, created_by
	`
	record, err := scanPendingChange(l.db.QueryRowContext(ctx, query, id, status, StatusCreated))
	if err == nil {
		return record, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("transition pending change: %w", err)
	}

	record, err = l.findByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return record, false, nil
}

func (l *PostgresLedger) findByID(ctx context.Context, id uuid.UUID) (*PendingChange, error) {
	query := `
		SELECT id, username, kind, status, review_url, review_id, payload, created_at, created_by
		FROM pending_changes
		WHERE id = $1
	`
	record, err := scanPendingChange(l.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("pending change %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get pending change: %w", err)
	}
	return record, nil
}

func (l *PostgresLedger) FindOpen(ctx context.Context, username string) (*PendingChange, error) {
	query := `
		SELECT id, username, kind, status, review_url, review_id, payload, created_at, created_by
		FROM pending_changes
		WHERE username = $1 AND status = $2
	`
	record, err := scanPendingChange(l.db.QueryRowContext(ctx, query, username, StatusCreated))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("open change for %s: %w", username, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find open change: %w", err)
	}
	return record, nil
}

func (l *PostgresLedger) FindByReviewURL(ctx context.Context, url string) (*PendingChange, error) {
	query := `
		SELECT id, username, kind, status, review_url, review_id, payload, created_at, created_by
		FROM pending_changes
		WHERE review_url = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	record, err := scanPendingChange(l.db.QueryRowContext(ctx, query, url))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("change for review %s: %w", url, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find change by review url: %w", err)
	}
	return record, nil
}

func scanPendingChange(row *sql.Row) (*PendingChange, error) {
	var record PendingChange
	var payload []byte
	err := row.Scan(&record.ID, &record.Username, &record.Kind, &record.Status,
		&record.ReviewURL, &record.ReviewID, &payload, &record.CreatedAt, &record.CreatedBy)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &record.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal candidate payload: %w", err)
	}
	return &record, nil
}
