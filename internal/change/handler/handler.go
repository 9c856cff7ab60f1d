package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"roster/internal/change"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/httputil"
	"roster/pkg/requestcontext"
)

// Service defines the base info operations the handler needs.
type Service interface {
	SubmitBaseInfoUpdate(ctx context.Context, username string, sub change.Submission) (*change.SubmitResult, error)
	GetBaseInfo(ctx context.Context, username string) (*change.BaseInfoView, error)
}

// Handler wires base info endpoints to the change service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a base info handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts base info endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/account/base-info", h.HandleGetBaseInfo)
	r.Post("/members/{username}/base-info", h.HandleSubmit)
}

// HandleSubmit handles POST /members/{username}/base-info requests. Members
// may edit their own card; admins may edit anyone's.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actor := requestcontext.Username(ctx)
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	username := chi.URLParam(r, "username")
	if username != actor && !requestcontext.IsAdmin(ctx) {
		httputil.WriteError(w, dErrors.Errorf(dErrors.CodeForbidden,
			"you may only edit your own card"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SubmitBaseInfoUpdate(ctx, username, req.Submission())
	if err != nil {
		var verrs change.ValidationErrors
		if errors.As(err, &verrs) {
			httputil.WriteJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:  string(dErrors.CodeValidation),
				Fields: verrs,
			})
			return
		}
		h.logger.ErrorContext(ctx, "base info submission failed",
			"request_id", requestID,
			"username", username,
			"actor", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "base info submission accepted",
		"request_id", requestID,
		"username", username,
		"actor", actor,
		"review_url", result.ReviewURL,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromResult(result))
}

// HandleGetBaseInfo handles GET /account/base-info requests, returning the
// caller's own card plus the team catalog for the edit form.
func (h *Handler) HandleGetBaseInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor := requestcontext.Username(ctx)
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	view, err := h.service.GetBaseInfo(ctx, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "base info lookup failed",
			"request_id", requestID,
			"username", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromView(view, requestcontext.IsAdmin(ctx)))
}
