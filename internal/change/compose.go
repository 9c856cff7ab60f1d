package change

import "roster/internal/member"

// Compose merges the member's current state with validated fields into a
// candidate change. Policy: earlier missions are immutable; only the trailing
// mission's end date is rewritten. Role and team sets are full replacements;
// the submission is the complete desired state for those fields.
//
// Compose is deterministic and side-effect free; equal inputs always yield
// equal candidates so a retried patch submission produces no spurious diff.
func Compose(m member.Member, fields Fields) Candidate {
	missions := member.CloneMissions(m.Missions)
	if len(missions) > 0 {
		end := fields.End
		missions[len(missions)-1].End = &end
	}
	return Candidate{
		Role:          fields.Role,
		Teams:         append([]string{}, fields.Teams...),
		PreviousTeams: append([]string{}, fields.PreviousTeams...),
		Missions:      missions,
	}
}
