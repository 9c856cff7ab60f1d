package change

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/member"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(member.DateLayout, value)
	require.NoError(t, err)
	return parsed
}

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed := date(t, value)
	return &parsed
}

func validSubmission() Submission {
	return Submission{
		Role:          "Lead developer",
		Teams:         []string{"platform"},
		PreviousTeams: []string{"onboarding"},
		Start:         "2025-01-01",
		End:           "2025-12-31",
	}
}

func TestValidateSubmission_Valid(t *testing.T) {
	fields, errs := ValidateSubmission(validSubmission(), nil)

	require.Empty(t, errs)
	assert.Equal(t, "Lead developer", fields.Role)
	assert.Equal(t, []string{"platform"}, fields.Teams)
	assert.Equal(t, []string{"onboarding"}, fields.PreviousTeams)
	assert.Equal(t, date(t, "2025-12-31"), fields.End)
}

func TestValidateSubmission_ReportsAllProblemsAtOnce(t *testing.T) {
	_, errs := ValidateSubmission(Submission{
		Role:          "   ",
		Teams:         nil,
		PreviousTeams: []string{"", "  "},
		End:           "",
	}, nil)

	require.Len(t, errs, 4)
	assert.Contains(t, errs, "role")
	assert.Contains(t, errs, "teams")
	assert.Contains(t, errs, "previously")
	assert.Contains(t, errs, "end")
}

func TestValidateSubmission_UnparseableDates(t *testing.T) {
	sub := validSubmission()
	sub.Start = "01/02/2025"
	sub.End = "not-a-date"

	_, errs := ValidateSubmission(sub, nil)

	require.Len(t, errs, 2)
	assert.Equal(t, []string{"start date is not a valid date"}, errs["start"])
	assert.Equal(t, []string{"new end date is not a valid date"}, errs["end"])
}

func TestValidateSubmission_EndMustFollowSubmittedStart(t *testing.T) {
	sub := validSubmission()
	sub.Start = "2025-06-01"
	sub.End = "2025-06-01"

	_, errs := ValidateSubmission(sub, nil)

	require.Len(t, errs, 1)
	assert.Equal(t, []string{"new end date must be after the mission start date"}, errs["end"])
}

func TestValidateSubmission_FallsBackToCurrentMissionStart(t *testing.T) {
	current := &member.Member{
		Username: "jdoe",
		Missions: []member.Mission{{Start: date(t, "2025-03-01")}},
	}
	sub := validSubmission()
	sub.Start = ""
	sub.End = "2025-02-01"

	_, errs := ValidateSubmission(sub, current)

	require.Len(t, errs, 1)
	assert.Contains(t, errs["end"][0], "must be after")
}

func TestValidateSubmission_NoStartAnywhereSkipsCrossCheck(t *testing.T) {
	sub := validSubmission()
	sub.Start = ""

	_, errs := ValidateSubmission(sub, &member.Member{Username: "jdoe"})

	assert.Empty(t, errs)
}

func TestValidateSubmission_NormalizesTeamSets(t *testing.T) {
	sub := validSubmission()
	sub.Teams = []string{" zeta ", "alpha", "zeta", ""}
	sub.PreviousTeams = []string{"old", "old"}

	fields, errs := ValidateSubmission(sub, nil)

	require.Empty(t, errs)
	assert.Equal(t, []string{"alpha", "zeta"}, fields.Teams)
	assert.Equal(t, []string{"old"}, fields.PreviousTeams)
}

func TestValidationErrors_ErrorListsFields(t *testing.T) {
	errs := ValidationErrors{}
	errs.Add("role", "role is required")
	errs.Add("end", "new end date is required")

	assert.Equal(t, "validation failed on: end, role", errs.Error())
}
