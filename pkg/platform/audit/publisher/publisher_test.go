package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/pkg/platform/audit"
	"roster/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	event := audit.Event{
		ActorID: "admin.user",
		Subject: "valid.member",
		Action:  string(audit.EventMemberBaseInfoUpdated),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), "valid.member")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventMemberBaseInfoUpdated), events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "Emit should stamp events")
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Subject: "valid.member",
		Action:  string(audit.EventMemberUpdateMerged),
	})
	require.NoError(t, err)

	// Wait for async processing
	assert.Eventually(t, func() bool {
		events, err := store.ListBySubject(context.Background(), "valid.member")
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Subject: "valid.member",
			Action:  string(audit.EventMemberBaseInfoUpdated),
		})
		require.NoError(t, err)
	}

	// Close should drain all buffered events.
	pub.Close()

	events, err := store.ListBySubject(context.Background(), "valid.member")
	require.NoError(t, err)
	assert.Len(t, events, 10)
}
