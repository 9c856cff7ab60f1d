//go:build integration

package worker_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	auditpg "roster/pkg/platform/audit/store/postgres"
	"roster/pkg/platform/audit/worker"
	"roster/pkg/testutil/containers"
)

// fakeOutbox hands a fixed batch to the worker and records what it marks
// published.
type fakeOutbox struct {
	mu        sync.Mutex
	pending   []auditpg.OutboxEntry
	published []uuid.UUID
}

func (f *fakeOutbox) FetchUnpublished(_ context.Context, limit int) ([]auditpg.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, ids...)
	remaining := f.pending[:0]
	for _, entry := range f.pending {
		marked := false
		for _, id := range ids {
			if entry.ID == id {
				marked = true
				break
			}
		}
		if !marked {
			remaining = append(remaining, entry)
		}
	}
	f.pending = remaining
	return nil
}

func (f *fakeOutbox) publishedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func TestWorkerPublishesOutboxToKafka(t *testing.T) {
	broker := containers.NewRedpandaContainer(t)
	topic := "roster.audit-events"

	client, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.DefaultProduceTopic(topic),
	)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, worker.EnsureTopic(ctx, client, topic))
	// Ensuring an existing topic is a no-op, not an error.
	require.NoError(t, worker.EnsureTopic(ctx, client, topic))

	entry := auditpg.OutboxEntry{
		ID:        uuid.New(),
		ActorID:   "jdoe",
		Subject:   "jdoe",
		Action:    "member_base_info_updated",
		Metadata:  []byte(`{"review_url":"https://reviews/42"}`),
		RequestID: "req-1",
		CreatedAt: time.Now().UTC(),
	}
	outbox := &fakeOutbox{pending: []auditpg.OutboxEntry{entry}}

	w := worker.New(outbox, client, topic, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return outbox.publishedCount() == 1
	}, 15*time.Second, 100*time.Millisecond, "outbox entry was not marked published")
	cancel()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, fetchCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer fetchCancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, []byte("jdoe"), records[0].Key)

	var feed struct {
		ID        string          `json:"id"`
		ActorID   string          `json:"actor_id"`
		Subject   string          `json:"subject"`
		Action    string          `json:"action"`
		Metadata  json.RawMessage `json:"metadata"`
		RequestID string          `json:"request_id"`
		Timestamp string          `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(records[0].Value, &feed))
	assert.Equal(t, entry.ID.String(), feed.ID)
	assert.Equal(t, "member_base_info_updated", feed.Action)
	assert.JSONEq(t, `{"review_url":"https://reviews/42"}`, string(feed.Metadata))
	assert.Equal(t, "req-1", feed.RequestID)

	ts, err := time.Parse(time.RFC3339Nano, feed.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, entry.CreatedAt, ts, time.Second)
}
