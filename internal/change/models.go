// Package change implements the profile change-proposal workflow: validating
// a submission, composing it into a candidate change, translating it into
// file edits, opening a review request, and recording the pending change in
// the ledger.
package change

import (
	"time"

	"github.com/google/uuid"

	"roster/internal/member"
)

// Status is the lifecycle state of a pending change.
// created is the only non-terminal state; records never return to it.
type Status string

const (
	StatusCreated Status = "created"
	StatusMerged  Status = "merged"
	StatusClosed  Status = "closed"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	return s == StatusMerged || s == StatusClosed || s == StatusFailed
}

// Kind identifies what a pending change edits.
type Kind string

const KindMemberUpdate Kind = "member_update"

// Candidate is the composed desired state for a member's base info. The same
// (member, fields) pair always composes to an equal Candidate, which makes
// patch resubmission safe.
type Candidate struct {
	Role          string           `json:"role"`
	Teams         []string         `json:"teams"`
	PreviousTeams []string         `json:"previously"`
	Missions      []member.Mission `json:"missions"`
}

// PendingChange is the durable record of one proposed edit, tied to an
// external review request. Records are transitioned, never deleted.
type PendingChange struct {
	ID        uuid.UUID
	Username  string
	Kind      Kind
	Status    Status
	ReviewURL string
	ReviewID  string
	Payload   Candidate
	CreatedAt time.Time
	CreatedBy string
}
