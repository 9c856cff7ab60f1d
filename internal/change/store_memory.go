package change

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"roster/internal/review"
	"roster/pkg/platform/sentinel"
	"roster/pkg/requestcontext"
)

// InMemoryLedger keeps pending changes in memory for tests and local runs.
// The check-and-insert in TryOpen happens under one lock, mirroring the
// atomicity the postgres store gets from its partial unique index.
type InMemoryLedger struct {
	mu      sync.Mutex
	records map[uuid.UUID]*PendingChange
	order   []uuid.UUID
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{records: make(map[uuid.UUID]*PendingChange)}
}

func (l *InMemoryLedger) TryOpen(ctx context.Context, username string, candidate Candidate, ref review.ReviewRef, createdBy string) (*PendingChange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range l.order {
		record := l.records[id]
		if record.Username == username && record.Status == StatusCreated {
			return nil, fmt.Errorf("open change for %s: %w", username, sentinel.ErrConflict)
		}
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
	l.records[record.ID] = record
	l.order = append(l.order, record.ID)
	copied := *record
	return &copied, nil
}

func (l *InMemoryLedger) Transition(_ context.Context, id uuid.UUID, status Status) (*PendingChange, bool, error) {
	if !status.Terminal() {
		return nil, false, fmt.Errorf("transition to %s: %w", status, sentinel.ErrInvalidState)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[id]
	if !ok {
		return nil, false, fmt.Errorf("pending change %s: %w", id, sentinel.ErrNotFound)
	}
	if record.Status.Terminal() {
		copied := *record
		return &copied, false, nil
	}
	record.Status = status
	copied := *record
	return &copied, true, nil
}

func (l *InMemoryLedger) FindOpen(_ context.Context, username string) (*PendingChange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range l.order {
		record := l.records[id]
		if record.Username == username && record.Status == StatusCreated {
			copied := *record
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("open change for %s: %w", username, sentinel.ErrNotFound)
}

func (l *InMemoryLedger) FindByReviewURL(_ context.Context, url string) (*PendingChange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range l.order {
		record := l.records[id]
		if record.ReviewURL == url {
			copied := *record
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("change for review %s: %w", url, sentinel.ErrNotFound)
}
