package member

import "context"

// BaseInfo is the replaceable slice of a member record. Reconciliation
// applies it atomically after an accepted review.
type BaseInfo struct {
	Role          string
	Teams         []string
	PreviousTeams []string
	Missions      []Mission
}

// Store reads and updates authoritative member records. Get returns
// sentinel.ErrNotFound (wrapped) for unknown usernames. ApplyBaseInfo must be
// atomic with respect to concurrent callers for the same username.
type Store interface {
	Get(ctx context.Context, username string) (*Member, error)
	ApplyBaseInfo(ctx context.Context, username string, info BaseInfo) error
}
