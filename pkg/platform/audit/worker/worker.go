// Package worker publishes the audit outbox to Kafka. Kafka carries the
// append-only feed consumed by external observability and reporting tooling;
// the outbox table remains the durable source when Kafka is down.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	auditpg "roster/pkg/platform/audit/store/postgres"
)

const defaultBatchSize = 100

// Outbox is the slice of the postgres audit store the worker needs.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]auditpg.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Worker drains the audit outbox into a Kafka topic at a fixed interval.
type Worker struct {
	outbox   Outbox
	client   *kgo.Client
	topic    string
	interval time.Duration
	logger   *slog.Logger
}

func New(outbox Outbox, client *kgo.Client, topic string, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		outbox:   outbox,
		client:   client,
		topic:    topic,
		interval: interval,
		logger:   logger,
	}
}

// Run polls the outbox until ctx is cancelled. Publish failures are retried
// on the next tick; rows stay unpublished until Kafka acknowledges them.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.publishBatch(ctx); err != nil {
				w.logger.WarnContext(ctx, "audit outbox publish failed", "error", err)
			}
		}
	}
}

type feedRecord struct {
	ID        string          `json:"id"`
	ActorID   string          `json:"actor_id,omitempty"`
	Subject   string          `json:"subject"`
	Action    string          `json:"action"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (w *Worker) publishBatch(ctx context.Context) error {
	entries, err := w.outbox.FetchUnpublished(ctx, defaultBatchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		payload, err := json.Marshal(feedRecord{
			ID:        entry.ID.String(),
			ActorID:   entry.ActorID,
			Subject:   entry.Subject,
			Action:    entry.Action,
			Metadata:  entry.Metadata,
			RequestID: entry.RequestID,
			Timestamp: entry.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		records = append(records, &kgo.Record{
			Topic: w.topic,
			Key:   []byte(entry.Subject),
			Value: payload,
		})
		ids = append(ids, entry.ID)
	}

	if err := w.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit records: %w", err)
	}
	return w.outbox.MarkPublished(ctx, ids)
}

// EnsureTopic creates the audit topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, result := range resp {
		if result.Err != nil && !errors.Is(result.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", result.Topic, result.Err)
		}
	}
	return nil
}
