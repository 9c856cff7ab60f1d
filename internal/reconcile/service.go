// Package reconcile closes the loop on submitted changes: when the review
// platform reports a review request merged or closed, the pending change is
// settled and, for merges, the member record is updated.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"roster/internal/change"
	"roster/internal/member"
	"roster/internal/platform/metrics"
	"roster/pkg/platform/audit"
	"roster/pkg/platform/audit/publisher"
	"roster/pkg/platform/sentinel"
	"roster/pkg/requestcontext"
)

// Outcome is how the review platform resolved a review request.
type Outcome string

const (
	OutcomeMerged Outcome = "merged"
	OutcomeClosed Outcome = "closed"
)

// Service applies review resolutions to the ledger and the member store.
type Service struct {
	ledger  change.Ledger
	members member.Store
	locker  Locker
	audit   *publisher.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics wires Prometheus metrics into reconciliation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(ledger change.Ledger, members member.Store, locker Locker, auditPub *publisher.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		ledger:  ledger,
		members: members,
		locker:  locker,
		audit:   auditPub,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnResolved settles the pending change tied to reviewURL. Resolutions for
// unknown review requests are ignored; redeliveries of an already-settled
// resolution are no-ops. For a merge the member record is updated before the
// ledger settles, so a crash in between is healed by redelivery.
func (s *Service) OnResolved(ctx context.Context, reviewURL string, outcome Outcome) error {
	log := s.logger.With(
		slog.String("request_id", requestcontext.RequestID(ctx)),
		slog.String("review_url", reviewURL),
		slog.String("outcome", string(outcome)),
	)

	record, err := s.ledger.FindByReviewURL(ctx, reviewURL)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncReconciliation("unknown_reference")
			log.Info("resolution for unknown review request ignored")
			return nil
		}
		return fmt.Errorf("find change for review: %w", err)
	}

	release, err := s.locker.Acquire(ctx, record.Username)
	if err != nil {
		return fmt.Errorf("serialize reconciliation for %s: %w", record.Username, err)
	}
	defer release()

	// Re-read under the lock; a concurrent delivery may have settled it.
	record, err = s.ledger.FindByReviewURL(ctx, reviewURL)
	if err != nil {
		return fmt.Errorf("find change for review: %w", err)
	}
	if record.Status.Terminal() {
		log.Info("pending change already settled", slog.String("status", string(record.Status)))
		return nil
	}

	if outcome == OutcomeMerged {
		info := member.BaseInfo{
			Role:          record.Payload.Role,
			Teams:         record.Payload.Teams,
			PreviousTeams: record.Payload.PreviousTeams,
			Missions:      record.Payload.Missions,
		}
		if err := s.members.ApplyBaseInfo(ctx, record.Username, info); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// The member vanished between submission and merge; the
				// candidate can never apply, so settle the change as failed.
				return s.fail(ctx, log, record, err)
			}
			return fmt.Errorf("apply base info for %s: %w", record.Username, err)
		}
	}

	target := change.StatusClosed
	action := audit.EventMemberUpdateClosed
	if outcome == OutcomeMerged {
		target = change.StatusMerged
		action = audit.EventMemberUpdateMerged
	}

	record, changed, err := s.ledger.Transition(ctx, record.ID, target)
	if err != nil {
		return fmt.Errorf("settle pending change: %w", err)
	}
	if !changed {
		log.Info("pending change already settled", slog.String("status", string(record.Status)))
		return nil
	}

	s.metrics.IncReconciliation(string(outcome))
	s.emitAudit(ctx, action, record)
	log.Info("pending change settled",
		slog.String("username", record.Username),
		slog.String("status", string(record.Status)))
	return nil
}

// fail settles a change whose candidate can no longer be applied. The cause
// is recorded in the audit trail; the webhook is answered successfully since
// redelivery cannot help.
func (s *Service) fail(ctx context.Context, log *slog.Logger, record *change.PendingChange, cause error) error {
	record, changed, err := s.ledger.Transition(ctx, record.ID, change.StatusFailed)
	if err != nil {
		return fmt.Errorf("settle pending change: %w", err)
	}
	if changed {
		s.metrics.IncReconciliation("failed")
		s.emitAudit(ctx, audit.EventMemberUpdateFailed, record)
	}
	log.Warn("pending change failed",
		slog.String("username", record.Username),
		slog.Any("error", cause))
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.Code, record *change.PendingChange) {
	err := s.audit.Emit(ctx, audit.Event{
		ActorID:   "review-platform",
		Subject:   record.Username,
		Action:    string(action),
		Metadata:  map[string]string{"review_url": record.ReviewURL, "change_id": record.ID.String()},
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.metrics.IncAuditEmitFailure()
		s.logger.Warn("audit emit failed",
			slog.String("action", string(action)),
			slog.Any("error", err))
	}
}
