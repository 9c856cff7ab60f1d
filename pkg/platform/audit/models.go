package audit

import "time"

// Event is emitted from domain logic to capture state-changing actions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	ActorID   string // who performed the action
	Subject   string // the member the action targets
	Action    string
	Metadata  map[string]string
	RequestID string
}

// Code enumerates audit actions. The trail is append-only; codes are never
// reused for different meanings.
type Code string

const (
	EventMemberBaseInfoUpdated Code = "member_base_info_updated"
	EventMemberUpdateMerged    Code = "member_update_merged"
	EventMemberUpdateClosed    Code = "member_update_closed"
	EventMemberUpdateFailed    Code = "member_update_failed"
)
