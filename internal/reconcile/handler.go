package reconcile

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/httputil"
	"roster/pkg/requestcontext"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// Handler receives review resolution webhooks from the hosting platform.
type Handler struct {
	service *Service
	secret  []byte
	logger  *slog.Logger
}

func NewHandler(service *Service, secret string, logger *slog.Logger) *Handler {
	return &Handler{service: service, secret: []byte(secret), logger: logger}
}

// Register mounts the webhook endpoint on the router. The endpoint is
// authenticated by signature, not by bearer token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/hooks/review", h.HandleReviewEvent)
}

// webhookPayload is the subset of the pull request event we act on.
type webhookPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		HTMLURL string `json:"html_url"`
		Merged  bool   `json:"merged"`
	} `json:"pull_request"`
}

// HandleReviewEvent handles POST /hooks/review requests. Only closed events
// are acted on; everything else is acknowledged and dropped. Processing
// failures return 500 so the platform redelivers.
func (h *Handler) HandleReviewEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read request body"))
		return
	}

	if !h.verifySignature(body, r.Header.Get("X-Hub-Signature-256")) {
		h.logger.WarnContext(ctx, "webhook signature rejected", "request_id", requestID)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid signature"))
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be valid JSON"))
		return
	}

	if payload.Action != "closed" || payload.PullRequest.HTMLURL == "" {
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
		return
	}

	outcome := OutcomeClosed
	if payload.PullRequest.Merged {
		outcome = OutcomeMerged
	}

	if err := h.service.OnResolved(ctx, payload.PullRequest.HTMLURL, outcome); err != nil {
		h.logger.ErrorContext(ctx, "review resolution failed",
			"request_id", requestID,
			"review_url", payload.PullRequest.HTMLURL,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "resolution not applied", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// verifySignature checks the hex HMAC-SHA256 of the raw body against the
// sha256= header GitHub-style platforms send.
func (h *Handler) verifySignature(body []byte, header string) bool {
	if len(h.secret) == 0 || header == "" {
		return false
	}
	const prefix = "sha256="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(header[len(prefix):]))
}
