package change

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mssola/useragent"

	"roster/internal/member"
	"roster/internal/platform/metrics"
	"roster/internal/review"
	"roster/internal/team"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/audit"
	"roster/pkg/platform/audit/publisher"
	"roster/pkg/platform/sentinel"
	"roster/pkg/requestcontext"
)

const (
	maxSubmitAttempts = 3
	submitBackoff     = 500 * time.Millisecond
)

// Service orchestrates the base info update workflow: validate, compose,
// patch, submit for review, record the pending change, audit.
type Service struct {
	members member.Store
	teams   team.Store
	ledger  Ledger
	gateway review.Gateway
	audit   *publisher.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics wires Prometheus metrics into the workflow.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSleep replaces the retry backoff sleeper. Tests inject a no-op.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

func NewService(members member.Store, teams team.Store, ledger Ledger, gateway review.Gateway, auditPub *publisher.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		members: members,
		teams:   teams,
		ledger:  ledger,
		gateway: gateway,
		audit:   auditPub,
		logger:  logger,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitResult is returned to the caller after a successful submission.
type SubmitResult struct {
	Message   string
	Username  string
	ReviewURL string
}

// SubmitBaseInfoUpdate runs the full workflow for one submission. On success
// exactly one review request is open and one ledger record exists for the
// subject; on any failure before TryOpen no record is written.
func (s *Service) SubmitBaseInfoUpdate(ctx context.Context, username string, sub Submission) (*SubmitResult, error) {
	actor := requestcontext.Username(ctx)
	log := s.logger.With(
		slog.String("request_id", requestcontext.RequestID(ctx)),
		slog.String("username", username),
		slog.String("actor", actor),
	)

	current, err := s.members.Get(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Errorf(dErrors.CodeNotFound, "member %s not found", username)
		}
		return nil, fmt.Errorf("load member: %w", err)
	}

	fields, verrs := ValidateSubmission(sub, current)
	if len(verrs) > 0 {
		s.metrics.IncSubmission("validation_error")
		return nil, dErrors.Wrap(dErrors.CodeValidation, verrs.Error(), verrs)
	}

	// Fail early without touching the gateway when a change is already
	// pending. The ledger insert below still guards the race.
	if open, err := s.ledger.FindOpen(ctx, username); err == nil {
		s.metrics.IncSubmission("conflict")
		return nil, dErrors.Errorf(dErrors.CodeConflict,
			"a change for %s is already under review: %s", username, open.ReviewURL)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("check open change: %w", err)
	}

	candidate := Compose(*current, fields)
	edits := BuildPatch(username, candidate)
	title := fmt.Sprintf("Update member card for %s by %s", username, actor)

	ref, err := s.submitWithRetry(ctx, title, edits)
	if err != nil {
		s.metrics.IncSubmission("gateway_error")
		log.Error("review submission failed", slog.Any("error", err))
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "could not open review request", err)
	}

	record, err := s.openLedgerRecord(ctx, username, candidate, ref, actor)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncSubmission("conflict")
			log.Warn("lost open-change race after review submission",
				slog.String("review_url", ref.URL))
			return nil, dErrors.Errorf(dErrors.CodeConflict,
				"a change for %s is already under review", username)
		}
		// The review request exists but the workflow lost track of it.
		// Surface the URL loudly so an operator can reconcile by hand.
		s.metrics.IncSubmission("persistence_error")
		log.Error("pending change not recorded; review request is orphaned",
			slog.String("review_url", ref.URL),
			slog.Any("error", err))
		return nil, dErrors.Wrap(dErrors.CodeInternal, "change submitted but not recorded", err)
	}

	s.metrics.IncSubmission("created")
	s.emitAudit(ctx, audit.EventMemberBaseInfoUpdated, actor, username, map[string]string{
		"review_url": ref.URL,
		"change_id":  record.ID.String(),
		"role":       candidate.Role,
	})
	log.Info("base info change submitted", slog.String("review_url", ref.URL))

	return &SubmitResult{
		Message:   "Your update is now under review.",
		Username:  username,
		ReviewURL: ref.URL,
	}, nil
}

// submitWithRetry calls the gateway with bounded retries. Only transient
// failures are retried; a permanent error aborts immediately.
func (s *Service) submitWithRetry(ctx context.Context, title string, edits []review.FileEdit) (review.ReviewRef, error) {
	var lastErr error
	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		start := time.Now()
		ref, err := s.gateway.Submit(ctx, title, edits)
		s.metrics.ObserveGatewaySubmit(start)
		if err == nil {
			s.metrics.IncGatewayAttempt("ok")
			return ref, nil
		}
		if !review.IsTransient(err) {
			s.metrics.IncGatewayAttempt("permanent")
			return review.ReviewRef{}, err
		}
		s.metrics.IncGatewayAttempt("transient")
		lastErr = err
		if attempt < maxSubmitAttempts {
			if err := s.sleep(ctx, submitBackoff*time.Duration(1<<(attempt-1))); err != nil {
				return review.ReviewRef{}, err
			}
		}
	}
	return review.ReviewRef{}, fmt.Errorf("after %d attempts: %w", maxSubmitAttempts, lastErr)
}

// openLedgerRecord inserts the pending change, retrying once on storage
// failure. Conflicts are not retried; they mean another submission won.
func (s *Service) openLedgerRecord(ctx context.Context, username string, candidate Candidate, ref review.ReviewRef, actor string) (*PendingChange, error) {
	record, err := s.ledger.TryOpen(ctx, username, candidate, ref, actor)
	if err == nil || errors.Is(err, sentinel.ErrConflict) {
		return record, err
	}
	record, retryErr := s.ledger.TryOpen(ctx, username, candidate, ref, actor)
	if retryErr != nil {
		return nil, fmt.Errorf("record pending change: %w", retryErr)
	}
	return record, nil
}

// BaseInfoView is everything the edit form needs: the current record, the
// team catalog, and a pointer at any change already under review.
type BaseInfoView struct {
	Member        *member.Member
	Teams         []team.Team
	PendingReview string
}

// GetBaseInfo assembles the edit-form view for a member.
func (s *Service) GetBaseInfo(ctx context.Context, username string) (*BaseInfoView, error) {
	current, err := s.members.Get(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Errorf(dErrors.CodeNotFound, "member %s not found", username)
		}
		return nil, fmt.Errorf("load member: %w", err)
	}

	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	view := &BaseInfoView{Member: current, Teams: teams}
	if open, err := s.ledger.FindOpen(ctx, username); err == nil {
		view.PendingReview = open.ReviewURL
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("check open change: %w", err)
	}
	return view, nil
}

// emitAudit records an audit event, annotated with client metadata from the
// request context. Audit failures never fail the workflow.
func (s *Service) emitAudit(ctx context.Context, action audit.Code, actor, subject string, meta map[string]string) {
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		meta["client_ip"] = ip
	}
	if raw := requestcontext.UserAgent(ctx); raw != "" {
		ua := useragent.New(raw)
		name, version := ua.Browser()
		meta["client"] = fmt.Sprintf("%s %s", name, version)
	}
	err := s.audit.Emit(ctx, audit.Event{
		ActorID:   actor,
		Subject:   subject,
		Action:    string(action),
		Metadata:  meta,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.metrics.IncAuditEmitFailure()
		s.logger.Warn("audit emit failed",
			slog.String("action", string(action)),
			slog.Any("error", err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
