package member

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and file format for mission dates.
const DateLayout = "2006-01-02"

// Member is the authoritative profile record. The change workflow never
// mutates it directly; updates land only through reconciliation after an
// accepted review.
type Member struct {
	Username      string
	Fullname      string
	Role          string
	Teams         []string
	PreviousTeams []string
	Missions      []Mission
}

// Mission is one engagement period. End is nil while the mission is open.
// Within a member's mission sequence only the last entry may be open; all
// earlier entries are closed.
type Mission struct {
	Start time.Time
	End   *time.Time
}

// LastMission returns the trailing mission and true, or false for an empty
// sequence.
func (m Member) LastMission() (Mission, bool) {
	if len(m.Missions) == 0 {
		return Mission{}, false
	}
	return m.Missions[len(m.Missions)-1], true
}

// CloneMissions returns a deep copy of the mission sequence so composers can
// rewrite the tail without aliasing the authoritative record.
func CloneMissions(missions []Mission) []Mission {
	out := make([]Mission, len(missions))
	for i, mission := range missions {
		out[i] = Mission{Start: mission.Start}
		if mission.End != nil {
			end := *mission.End
			out[i].End = &end
		}
	}
	return out
}

type missionJSON struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// MarshalJSON encodes mission dates as plain YYYY-MM-DD strings, the format
// used in both the ledger payload snapshot and the content repository.
func (m Mission) MarshalJSON() ([]byte, error) {
	row := missionJSON{Start: m.Start.Format(DateLayout)}
	if m.End != nil {
		end := m.End.Format(DateLayout)
		row.End = &end
	}
	return json.Marshal(row)
}

func (m *Mission) UnmarshalJSON(data []byte) error {
	var row missionJSON
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	start, err := time.Parse(DateLayout, row.Start)
	if err != nil {
		return fmt.Errorf("parse mission start: %w", err)
	}
	m.Start = start
	m.End = nil
	if row.End != nil {
		end, err := time.Parse(DateLayout, *row.End)
		if err != nil {
			return fmt.Errorf("parse mission end: %w", err)
		}
		m.End = &end
	}
	return nil
}
