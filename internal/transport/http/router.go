// Package httptransport assembles the HTTP surface: middleware chain,
// authenticated member endpoints, the review webhook, and operational
// endpoints.
package httptransport

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	changehandler "roster/internal/change/handler"
	"roster/internal/platform/middleware"
	"roster/internal/reconcile"
	"roster/pkg/platform/httputil"
)

// Deps carries everything the router mounts.
type Deps struct {
	BaseInfo       *changehandler.Handler
	Webhook        *reconcile.Handler
	TokenValidator middleware.TokenValidator
	Logger         *slog.Logger
	DB             *sql.DB // nil when running on in-memory stores
}

// NewRouter wires all endpoints. Member endpoints sit behind bearer auth;
// the webhook authenticates by signature and stays outside the auth chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", healthz(deps.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Webhook.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))
		r.Use(middleware.ContentTypeJSON)
		deps.BaseInfo.Register(r)
	})

	return r
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"reason": "database unreachable",
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
