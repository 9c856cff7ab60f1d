package reconcile

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/change"
	"roster/internal/member"
	"roster/internal/review"
	"roster/pkg/platform/audit/publisher"
	auditmemory "roster/pkg/platform/audit/store/memory"
)

const testSecret = "hook-secret"

func newWebhookRouter(t *testing.T) (chi.Router, *change.InMemoryLedger, *member.InMemoryStore) {
	t.Helper()
	ledger := change.NewInMemoryLedger()
	members := member.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(ledger, members, NewMemoryLocker(),
		publisher.NewPublisher(auditmemory.NewInMemoryStore()), logger)

	r := chi.NewRouter()
	NewHandler(svc, testSecret, logger).Register(r)
	return r, ledger, members
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postHook(router chi.Router, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/hooks/review", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleReviewEvent_MergedSettlesChange(t *testing.T) {
	router, ledger, members := newWebhookRouter(t)
	members.Seed(member.Member{Username: "jdoe", Role: "Developer"})
	_, err := ledger.TryOpen(context.Background(), "jdoe",
		change.Candidate{Role: "Lead developer"},
		review.ReviewRef{URL: "https://reviews/42", ID: "42"}, "jdoe")
	require.NoError(t, err)

	body := []byte(`{"action":"closed","pull_request":{"html_url":"https://reviews/42","merged":true}}`)
	w := postHook(router, body, sign(testSecret, body))

	assert.Equal(t, http.StatusOK, w.Code)

	got, err := ledger.FindByReviewURL(context.Background(), "https://reviews/42")
	require.NoError(t, err)
	assert.Equal(t, change.StatusMerged, got.Status)

	m, err := members.Get(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Lead developer", m.Role)
}

func TestHandleReviewEvent_ClosedWithoutMerge(t *testing.T) {
	router, ledger, members := newWebhookRouter(t)
	members.Seed(member.Member{Username: "jdoe", Role: "Developer"})
	_, err := ledger.TryOpen(context.Background(), "jdoe", change.Candidate{Role: "Lead developer"},
		review.ReviewRef{URL: "https://reviews/42", ID: "42"}, "jdoe")
	require.NoError(t, err)

	body := []byte(`{"action":"closed","pull_request":{"html_url":"https://reviews/42","merged":false}}`)
	w := postHook(router, body, sign(testSecret, body))

	assert.Equal(t, http.StatusOK, w.Code)

	got, err := ledger.FindByReviewURL(context.Background(), "https://reviews/42")
	require.NoError(t, err)
	assert.Equal(t, change.StatusClosed, got.Status)

	m, err := members.Get(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Developer", m.Role)
}

func TestHandleReviewEvent_RejectsBadSignature(t *testing.T) {
	router, _, _ := newWebhookRouter(t)

	body := []byte(`{"action":"closed","pull_request":{"html_url":"https://reviews/42","merged":true}}`)

	w := postHook(router, body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postHook(router, body, sign("wrong-secret", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postHook(router, body, "sha256=nothex")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleReviewEvent_IgnoresNonCloseActions(t *testing.T) {
	router, _, _ := newWebhookRouter(t)

	body := []byte(`{"action":"opened","pull_request":{"html_url":"https://reviews/42","merged":false}}`)
	w := postHook(router, body, sign(testSecret, body))

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestHandleReviewEvent_UnknownReviewAcknowledged(t *testing.T) {
	router, _, _ := newWebhookRouter(t)

	body := []byte(`{"action":"closed","pull_request":{"html_url":"https://reviews/404","merged":true}}`)
	w := postHook(router, body, sign(testSecret, body))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleReviewEvent_MalformedBody(t *testing.T) {
	router, _, _ := newWebhookRouter(t)

	body := []byte(`{not json`)
	w := postHook(router, body, sign(testSecret, body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
