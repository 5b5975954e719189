// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Preview metrics
	Simulations *prometheus.CounterVec
	Assessments *prometheus.CounterVec

	// MEV protection metrics
	RiskScore          prometheus.Histogram
	RiskLevels         *prometheus.CounterVec
	BlockedTrades      prometheus.Counter
	DegradedProtection prometheus.Counter
	FallbackSubmission prometheus.Counter
	ProtectiveDelay    prometheus.Histogram
	Submissions        *prometheus.CounterVec
	BackoffRejections  prometheus.Counter

	// Ledger metrics
	TradesApplied *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency  *prometheus.HistogramVec
	HTTPLatency     *prometheus.HistogramVec
	WSNotifications prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "curve_guard"
	}

	return &Metrics{
		Simulations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "simulations_total",
			Help:      "Total number of trade previews by direction and outcome",
		}, []string{"direction", "status"}),
		Assessments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protection",
			Name:      "assessments_total",
			Help:      "Total number of trade assessments by MEV risk and verdict",
		}, []string{"mev_risk", "proceed"}),

		RiskScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mev",
			Name:      "risk_score",
			Help:      "Distribution of anti-sandwich risk scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 120},
		}),
		RiskLevels: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mev",
			Name:      "risk_levels_total",
			Help:      "Total number of risk assessments by level",
		}, []string{"level"}),
		BlockedTrades: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mev",
			Name:      "blocked_trades_total",
			Help:      "Total number of submissions blocked for MEV protection",
		}),
		DegradedProtection: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mev",
			Name:      "degraded_protection_total",
			Help:      "Total number of risk assessments that fell back to the fixed score",
		}),
		FallbackSubmission: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mev",
			Name:      "fallback_submissions_total",
			Help:      "Total number of flash bundles submitted sequentially without an atomic relay",
		}),
		ProtectiveDelay: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mev",
			Name:      "protective_delay_seconds",
			Help:      "Protective delays applied before submission",
			Buckets:   []float64{0.5, 1, 2, 4, 6, 8, 10, 15},
		}),
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mev",
			Name:      "submissions_total",
			Help:      "Total number of bundle submissions by tier and status",
		}, []string{"tier", "status"}),
		BackoffRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mev",
			Name:      "backoff_rejections_total",
			Help:      "Total number of submissions rejected inside a retry window",
		}),

		TradesApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trades_applied_total",
			Help:      "Total number of confirmed trades applied by direction",
		}, []string{"direction"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
		WSNotifications: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_notifications_total",
			Help:      "Total number of log notifications received",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSimulation records a trade preview.
func RecordSimulation(direction string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.Simulations.WithLabelValues(direction, status).Inc()
}

// RecordAssessment records a trade assessment verdict.
func RecordAssessment(mevRisk string, proceed bool) {
	verdict := "false"
	if proceed {
		verdict = "true"
	}
	DefaultMetrics.Assessments.WithLabelValues(mevRisk, verdict).Inc()
}

// RecordRiskScore records an anti-sandwich assessment.
func RecordRiskScore(level string, score float64) {
	DefaultMetrics.RiskScore.Observe(score)
	DefaultMetrics.RiskLevels.WithLabelValues(level).Inc()
}

// RecordBlocked increments the blocked trades counter.
func RecordBlocked() {
	DefaultMetrics.BlockedTrades.Inc()
}

// RecordDegradedProtection increments the degraded protection counter.
func RecordDegradedProtection() {
	DefaultMetrics.DegradedProtection.Inc()
}

// RecordFallbackSubmission increments the sequential fallback counter.
func RecordFallbackSubmission() {
	DefaultMetrics.FallbackSubmission.Inc()
}

// RecordProtectiveDelay records a protective delay.
func RecordProtectiveDelay(seconds float64) {
	DefaultMetrics.ProtectiveDelay.Observe(seconds)
}

// RecordSubmission records a submission outcome.
func RecordSubmission(tier, status string) {
	DefaultMetrics.Submissions.WithLabelValues(tier, status).Inc()
}

// RecordBackoffRejection increments the backoff rejection counter.
func RecordBackoffRejection() {
	DefaultMetrics.BackoffRejections.Inc()
}

// RecordTradeApplied records a confirmed trade applied to the ledger.
func RecordTradeApplied(direction string) {
	DefaultMetrics.TradesApplied.WithLabelValues(direction).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordHTTPRequest records HTTP request latency.
func RecordHTTPRequest(route, code string, seconds float64) {
	DefaultMetrics.HTTPLatency.WithLabelValues(route, code).Observe(seconds)
}

// RecordWSNotification increments the WebSocket notification counter.
func RecordWSNotification() {
	DefaultMetrics.WSNotifications.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
