package reconcile_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/change"
	"roster/internal/member"
	"roster/internal/reconcile"
	"roster/internal/review"
	"roster/pkg/platform/audit"
	"roster/pkg/platform/audit/publisher"
	auditmemory "roster/pkg/platform/audit/store/memory"
)

type fixture struct {
	svc     *reconcile.Service
	ledger  *change.InMemoryLedger
	members *member.InMemoryStore
	events  *auditmemory.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := change.NewInMemoryLedger()
	members := member.NewInMemoryStore()
	events := auditmemory.NewInMemoryStore()
	svc := reconcile.NewService(ledger, members, reconcile.NewMemoryLocker(),
		publisher.NewPublisher(events),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &fixture{svc: svc, ledger: ledger, members: members, events: events}
}

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(member.DateLayout, value)
	require.NoError(t, err)
	return parsed
}

func (f *fixture) seedPending(t *testing.T) *change.PendingChange {
	t.Helper()
	f.members.Seed(member.Member{
		Username: "jdoe",
		Fullname: "Jane Doe",
		Role:     "Developer",
		Teams:    []string{"legacy"},
		Missions: []member.Mission{{Start: date(t, "2024-01-01")}},
	})
	end := date(t, "2025-12-31")
	record, err := f.ledger.TryOpen(context.Background(), "jdoe", change.Candidate{
		Role:          "Lead developer",
		Teams:         []string{"platform"},
		PreviousTeams: []string{"legacy"},
		Missions:      []member.Mission{{Start: date(t, "2024-01-01"), End: &end}},
	}, review.ReviewRef{URL: "https://reviews/42", ID: "42"}, "jdoe")
	require.NoError(t, err)
	return record
}

func TestOnResolved_MergeAppliesCandidate(t *testing.T) {
	f := newFixture(t)
	record := f.seedPending(t)
	ctx := context.Background()

	err := f.svc.OnResolved(ctx, "https://reviews/42", reconcile.OutcomeMerged)
	require.NoError(t, err)

	settled, err := f.ledger.FindByReviewURL(ctx, "https://reviews/42")
	require.NoError(t, err)
	assert.Equal(t, record.ID, settled.ID)
	assert.Equal(t, change.StatusMerged, settled.Status)

	m, err := f.members.Get(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Lead developer", m.Role)
	assert.Equal(t, []string{"platform"}, m.Teams)
	require.NotNil(t, m.Missions[0].End)
	assert.Equal(t, date(t, "2025-12-31"), *m.Missions[0].End)

	events, err := f.events.ListBySubject(ctx, "jdoe")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventMemberUpdateMerged), events[0].Action)
}

func TestOnResolved_CloseLeavesMemberUntouched(t *testing.T) {
	f := newFixture(t)
	f.seedPending(t)
	ctx := context.Background()

	err := f.svc.OnResolved(ctx, "https://reviews/42", reconcile.OutcomeClosed)
	require.NoError(t, err)

	m, err := f.members.Get(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Developer", m.Role)
	assert.Nil(t, m.Missions[0].End)

	got, err := f.ledger.FindByReviewURL(ctx, "https://reviews/42")
	require.NoError(t, err)
	assert.Equal(t, change.StatusClosed, got.Status)

	events, err := f.events.ListBySubject(ctx, "jdoe")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventMemberUpdateClosed), events[0].Action)
}

func TestOnResolved_RedeliveryIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.seedPending(t)
	ctx := context.Background()

	require.NoError(t, f.svc.OnResolved(ctx, "https://reviews/42", reconcile.OutcomeMerged))
	require.NoError(t, f.svc.OnResolved(ctx, "https://reviews/42", reconcile.OutcomeMerged))

	// A contradictory late delivery also leaves the settled record alone.
	require.NoError(t, f.svc.OnResolved(ctx, "https://reviews/42", reconcile.OutcomeClosed))

	got, err := f.ledger.FindByReviewURL(ctx, "https://reviews/42")
	require.NoError(t, err)
	assert.Equal(t, change.StatusMerged, got.Status)

	events, err := f.events.ListBySubject(ctx, "jdoe")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	m, err := f.members.Get(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Lead developer", m.Role)
}

func TestOnResolved_UnknownReviewIgnored(t *testing.T) {
	f := newFixture(t)

	err := f.svc.OnResolved(context.Background(), "https://reviews/404", reconcile.OutcomeMerged)

	assert.NoError(t, err)
}

func TestOnResolved_MergeForVanishedMemberFailsChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The change outlives its member: no member record, but an open change.
	record, err := f.ledger.TryOpen(ctx, "ghost", change.Candidate{Role: "Lead developer"},
		review.ReviewRef{URL: "https://reviews/99", ID: "99"}, "ghost")
	require.NoError(t, err)

	err = f.svc.OnResolved(ctx, "https://reviews/99", reconcile.OutcomeMerged)
	require.NoError(t, err)

	settled, err := f.ledger.FindByReviewURL(ctx, "https://reviews/99")
	require.NoError(t, err)
	assert.Equal(t, record.ID, settled.ID)
	assert.Equal(t, change.StatusFailed, settled.Status)

	events := f.events.All()
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventMemberUpdateFailed), events[0].Action)

	// A redelivered merge for the failed change stays a no-op.
	require.NoError(t, f.svc.OnResolved(ctx, "https://reviews/99", reconcile.OutcomeMerged))
	assert.Len(t, f.events.All(), 1)
}

func TestOnResolved_SubjectFreeToResubmitAfterClose(t *testing.T) {
	f := newFixture(t)
	f.seedPending(t)
	ctx := context.Background()

	require.NoError(t, f.svc.OnResolved(ctx, "https://reviews/42", reconcile.OutcomeClosed))

	_, err := f.ledger.TryOpen(ctx, "jdoe", change.Candidate{},
		review.ReviewRef{URL: "https://reviews/43", ID: "43"}, "jdoe")
	assert.NoError(t, err)
}
