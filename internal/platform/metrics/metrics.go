package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SubmissionsTotal     *prometheus.CounterVec
	GatewayAttemptsTotal *prometheus.CounterVec
	GatewayLatency       prometheus.Histogram
	ReconciliationsTotal *prometheus.CounterVec
	AuditEmitFailures    prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_submissions_total",
			Help: "Base info change submissions by outcome (created, validation_error, conflict, gateway_error, persistence_error).",
		}, []string{"outcome"}),
		GatewayAttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_review_gateway_attempts_total",
			Help: "Review gateway submission attempts by result (ok, transient, permanent).",
		}, []string{"result"}),
		GatewayLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_review_gateway_latency_seconds",
			Help:    "Latency of review gateway submissions.",
			Buckets: prometheus.DefBuckets,
		}),
		ReconciliationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_reconciliations_total",
			Help: "Review resolutions applied by outcome (merged, closed, unknown_reference).",
		}, []string{"outcome"}),
		AuditEmitFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_audit_emit_failures_total",
			Help: "Audit events that could not be durably recorded.",
		}),
	}
}

// The increment helpers are nil-safe so services can run without metrics
// (tests, local tooling) while production wires a registered instance.

// IncSubmission records one submission attempt by outcome.
func (m *Metrics) IncSubmission(outcome string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

// IncGatewayAttempt records one review gateway call by result.
func (m *Metrics) IncGatewayAttempt(result string) {
	if m == nil {
		return
	}
	m.GatewayAttemptsTotal.WithLabelValues(result).Inc()
}

// ObserveGatewaySubmit records the duration of a gateway submission.
// Call with time.Now() captured at the start of the call.
func (m *Metrics) ObserveGatewaySubmit(start time.Time) {
	if m == nil {
		return
	}
	m.GatewayLatency.Observe(time.Since(start).Seconds())
}

// IncReconciliation records one applied review resolution by outcome.
func (m *Metrics) IncReconciliation(outcome string) {
	if m == nil {
		return
	}
	m.ReconciliationsTotal.WithLabelValues(outcome).Inc()
}

// IncAuditEmitFailure records an audit event that could not be recorded.
func (m *Metrics) IncAuditEmitFailure() {
	if m == nil {
		return
	}
	m.AuditEmitFailures.Inc()
}
