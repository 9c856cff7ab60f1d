package handler

import (
	"roster/internal/change"
	"roster/internal/member"
)

// SubmitResponse is the HTTP response for POST /members/{username}/base-info.
type SubmitResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	PRURL    string `json:"pr_url"`
}

// ValidationErrorResponse carries per-field validation messages.
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

// FromResult converts a domain submit result to an HTTP response.
func FromResult(result *change.SubmitResult) *SubmitResponse {
	return &SubmitResponse{
		Message:  result.Message,
		Username: result.Username,
		PRURL:    result.ReviewURL,
	}
}

// BaseInfoResponse is the HTTP response for GET /account/base-info.
type BaseInfoResponse struct {
	Username      string            `json:"username"`
	Fullname      string            `json:"fullname"`
	Role          string            `json:"role"`
	Teams         []string          `json:"teams"`
	Previously    []string          `json:"previously"`
	Missions      []MissionResponse `json:"missions"`
	TeamCatalog   []TeamResponse    `json:"team_catalog"`
	IsAdmin       bool              `json:"is_admin"`
	PendingReview string            `json:"pending_review_url,omitempty"`
}

// MissionResponse is one engagement period in the response.
type MissionResponse struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// TeamResponse is one catalog entry in the response.
type TeamResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FromView converts the edit-form view to an HTTP response.
func FromView(view *change.BaseInfoView, isAdmin bool) *BaseInfoResponse {
	resp := &BaseInfoResponse{
		Username:      view.Member.Username,
		Fullname:      view.Member.Fullname,
		Role:          view.Member.Role,
		Teams:         view.Member.Teams,
		Previously:    view.Member.PreviousTeams,
		Missions:      make([]MissionResponse, 0, len(view.Member.Missions)),
		TeamCatalog:   make([]TeamResponse, 0, len(view.Teams)),
		IsAdmin:       isAdmin,
		PendingReview: view.PendingReview,
	}
	for _, mission := range view.Member.Missions {
		row := MissionResponse{Start: mission.Start.Format(member.DateLayout)}
		if mission.End != nil {
			end := mission.End.Format(member.DateLayout)
			row.End = &end
		}
		resp.Missions = append(resp.Missions, row)
	}
	for _, t := range view.Teams {
		resp.TeamCatalog = append(resp.TeamCatalog, TeamResponse{ID: t.ID, Name: t.Name})
	}
	return resp
}
