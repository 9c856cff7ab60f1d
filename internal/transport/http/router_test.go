package httptransport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/change"
	changehandler "roster/internal/change/handler"
	"roster/internal/jwttoken"
	"roster/internal/member"
	"roster/internal/reconcile"
	"roster/internal/review/mocks"
	"roster/internal/team"
	"roster/pkg/platform/audit/publisher"
	auditmemory "roster/pkg/platform/audit/store/memory"

	"go.uber.org/mock/gomock"
)

type env struct {
	server *httptest.Server
	tokens *jwttoken.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	members := member.NewInMemoryStore()
	members.Seed(member.Member{Username: "jdoe", Fullname: "Jane Doe", Role: "Developer"})
	ledger := change.NewInMemoryLedger()
	auditPub := publisher.NewPublisher(auditmemory.NewInMemoryStore())
	teams := team.NewInMemoryStore(map[string]string{"platform": "Platform"})
	tokens := jwttoken.New("test-signing-key", "roster")

	changeSvc := change.NewService(members, teams, ledger, mocks.NewMockGateway(ctrl), auditPub, logger)
	reconcileSvc := reconcile.NewService(ledger, members, reconcile.NewMemoryLocker(), auditPub, logger)

	router := NewRouter(Deps{
		BaseInfo:       changehandler.New(changeSvc, logger),
		Webhook:        reconcile.NewHandler(reconcileSvc, "hook-secret", logger),
		TokenValidator: tokens,
		Logger:         logger,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &env{server: server, tokens: tokens}
}

func TestRouter_Healthz(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_MetricsExposed(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_MemberEndpointsRequireToken(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.server.URL + "/account/base-info")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Post(e.server.URL+"/members/jdoe/base-info", "application/json",
		bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_AuthenticatedAccountLookup(t *testing.T) {
	e := newEnv(t)

	token, err := e.tokens.GenerateToken("jdoe", false, time.Hour)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/account/base-info", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body changehandler.BaseInfoResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "jdoe", body.Username)
}

func TestRouter_WebhookOutsideAuthChain(t *testing.T) {
	e := newEnv(t)

	// No bearer token; a bad signature must yield 401 from the webhook's own
	// check, not from the token middleware.
	resp, err := http.Post(e.server.URL+"/hooks/review", "application/json",
		bytes.NewReader([]byte(`{"action":"closed"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unauthorized", body["error"])
	assert.Equal(t, "invalid signature", body["error_description"])
}
