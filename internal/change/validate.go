package change

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"roster/internal/member"
)

// Submission carries the raw field values of a base info update request.
type Submission struct {
	Role          string   `json:"role"`
	Teams         []string `json:"teams"`
	PreviousTeams []string `json:"previously"`
	Start         string   `json:"start"`
	End           string   `json:"end"`
}

// Fields is a validated, normalized submission. Team lists are deduplicated
// and sorted so equal submissions produce equal fields.
type Fields struct {
	Role          string
	Teams         []string
	PreviousTeams []string
	End           time.Time
}

// ValidationErrors maps field names to human-readable messages. An empty set
// signals a valid submission.
type ValidationErrors map[string][]string

// Add appends a message under a field key.
func (v ValidationErrors) Add(field, message string) {
	v[field] = append(v[field], message)
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed on: %s", strings.Join(fields, ", "))
}

// ValidateSubmission checks a raw submission against the member's current
// state. Validation is exhaustive: every problem is reported in one pass
// rather than failing on the first.
//
// The submitted start date is only used for the cross-field check against
// the new end date; when absent, the start of the member's trailing open
// mission is used instead.
func ValidateSubmission(sub Submission, current *member.Member) (Fields, ValidationErrors) {
	errs := ValidationErrors{}
	fields := Fields{
		Role:          strings.TrimSpace(sub.Role),
		Teams:         normalizeSet(sub.Teams),
		PreviousTeams: normalizeSet(sub.PreviousTeams),
	}

	if fields.Role == "" {
		errs.Add("role", "role is required")
	}
	if len(fields.Teams) == 0 {
		errs.Add("teams", "at least one team is required")
	}
	if len(fields.PreviousTeams) == 0 {
		errs.Add("previously", "previous teams are required")
	}

	var end time.Time
	endOK := false
	if sub.End == "" {
		errs.Add("end", "new end date is required")
	} else {
		parsed, err := time.Parse(member.DateLayout, sub.End)
		if err != nil {
			errs.Add("end", "new end date is not a valid date")
		} else {
			end = parsed
			endOK = true
			fields.End = parsed
		}
	}

	var start time.Time
	startOK := false
	if sub.Start != "" {
		parsed, err := time.Parse(member.DateLayout, sub.Start)
		if err != nil {
			errs.Add("start", "start date is not a valid date")
		} else {
			start = parsed
			startOK = true
		}
	} else if current != nil {
		if last, ok := current.LastMission(); ok {
			start = last.Start
			startOK = true
		}
	}

	if startOK && endOK && !end.After(start) {
		errs.Add("end", "new end date must be after the mission start date")
	}

	return fields, errs
}

// normalizeSet trims, drops empties, deduplicates, and sorts so the set is
// canonical regardless of submission order.
func normalizeSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
