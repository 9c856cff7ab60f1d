package member

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/pkg/platform/sentinel"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGetReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	end := date("2022-01-01")
	store.Seed(Member{
		Username: "valid.member",
		Role:     "developer",
		Teams:    []string{"aides-jeunes"},
		Missions: []Mission{{Start: date("2021-01-01"), End: &end}},
	})

	m, err := store.Get(context.Background(), "valid.member")
	require.NoError(t, err)

	m.Teams[0] = "mutated"
	*m.Missions[0].End = date("2099-01-01")

	fresh, err := store.Get(context.Background(), "valid.member")
	require.NoError(t, err)
	assert.Equal(t, "aides-jeunes", fresh.Teams[0])
	assert.Equal(t, date("2022-01-01"), *fresh.Missions[0].End)
}

func TestGetUnknownMember(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestApplyBaseInfo(t *testing.T) {
	store := NewInMemoryStore()
	store.Seed(Member{Username: "valid.member", Role: "developer"})

	end := date("2023-06-01")
	err := store.ApplyBaseInfo(context.Background(), "valid.member", BaseInfo{
		Role:          "product manager",
		Teams:         []string{"monstack"},
		PreviousTeams: []string{"aides-jeunes"},
		Missions:      []Mission{{Start: date("2022-01-01"), End: &end}},
	})
	require.NoError(t, err)

	m, err := store.Get(context.Background(), "valid.member")
	require.NoError(t, err)
	assert.Equal(t, "product manager", m.Role)
	assert.Equal(t, []string{"monstack"}, m.Teams)
	assert.Equal(t, []string{"aides-jeunes"}, m.PreviousTeams)
	require.Len(t, m.Missions, 1)
	assert.Equal(t, end, *m.Missions[0].End)
}

func TestApplyBaseInfoUnknownMember(t *testing.T) {
	store := NewInMemoryStore()
	err := store.ApplyBaseInfo(context.Background(), "ghost", BaseInfo{Role: "developer"})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
