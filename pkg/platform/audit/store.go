package audit

import "context"

// Store persists audit events. Implementations must treat the trail as
// append-only: events are never mutated or deleted.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
