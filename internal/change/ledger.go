package change

import (
	"context"

	"github.com/google/uuid"

	"roster/internal/review"
)

// Ledger is the durable store of pending changes. The central invariant: for
// a given username, at most one record with status created exists at any
// time. TryOpen enforces it atomically with respect to concurrent callers.
//
// Implementations return sentinel.ErrConflict (wrapped) from TryOpen when an
// open record exists, and sentinel.ErrNotFound from lookups that miss.
type Ledger interface {
	// TryOpen atomically checks for an existing created record for the
	// username and inserts a new one if absent. A race between two
	// concurrent submissions yields exactly one success.
	TryOpen(ctx context.Context, username string, candidate Candidate, ref review.ReviewRef, createdBy string) (*PendingChange, error)

	// Transition moves a record out of created. Transitioning an already
	// terminal record is a no-op that returns the current record with
	// changed=false, so redelivered resolutions stay idempotent.
	Transition(ctx context.Context, id uuid.UUID, status Status) (pc *PendingChange, changed bool, err error)

	// FindOpen returns the created record for a username, if any.
	FindOpen(ctx context.Context, username string) (*PendingChange, error)

	// FindByReviewURL locates a record by its external review reference.
	FindByReviewURL(ctx context.Context, url string) (*PendingChange, error)
}
