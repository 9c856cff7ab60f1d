package handler

import (
	"roster/internal/change"
	dErrors "roster/pkg/domain-errors"
)

// UpdateRequest is the HTTP request body for POST /members/{username}/base-info.
// Field-level validation (required fields, date parsing, cross-field checks)
// belongs to the change service; here we only guard sizes.
type UpdateRequest struct {
	Role       string   `json:"role"`
	Teams      []string `json:"teams"`
	Previously []string `json:"previously"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
}

// Validate rejects oversized payloads before they reach the service.
func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Role) > 200 {
		return dErrors.New(dErrors.CodeValidation, "role must be at most 200 characters")
	}
	if len(r.Teams) > 50 || len(r.Previously) > 50 {
		return dErrors.New(dErrors.CodeValidation, "team lists must have at most 50 entries")
	}
	return nil
}

// Submission converts the request body into the domain submission.
func (r *UpdateRequest) Submission() change.Submission {
	return change.Submission{
		Role:          r.Role,
		Teams:         r.Teams,
		PreviousTeams: r.Previously,
		Start:         r.Start,
		End:           r.End,
	}
}
