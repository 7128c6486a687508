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
	// Stream metrics
	EventsReceived    *prometheus.CounterVec
	EventDecodeErrors *prometheus.CounterVec
	Reconnects        prometheus.Counter
	StreamConnected   prometheus.Gauge

	// Store metrics
	OpportunitiesTracked prometheus.Gauge
	OpportunitiesEvicted prometheus.Counter
	OpportunitiesExpired prometheus.Counter
	TradesTracked        prometheus.Gauge
	TradeCompletions     *prometheus.CounterVec
	StaleTradePatches    prometheus.Counter

	// Vault metrics
	VaultTransactions *prometheus.CounterVec
	VaultTxDuration   prometheus.Histogram

	// API metrics
	HTTPRequestDuration *prometheus.HistogramVec
	ExportsGenerated    prometheus.Counter

	// Persistence metrics
	TradesArchived     prometheus.Counter
	SnapshotsPersisted prometheus.Counter
	DBErrors           *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "arb_console"
	}

	return &Metrics{
		EventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_received_total",
			Help:      "Total number of agent events received by type",
		}, []string{"event"}),
		EventDecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "event_decode_errors_total",
			Help:      "Total number of event payload decode failures by type",
		}, []string{"event"}),
		Reconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of successful stream reconnects",
		}),
		StreamConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connected",
			Help:      "Whether the agent stream is currently connected (0 or 1)",
		}),

		OpportunitiesTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "opportunities_tracked",
			Help:      "Current number of live opportunities in the store",
		}),
		OpportunitiesEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "opportunities_evicted_total",
			Help:      "Total opportunities evicted by the capacity cap",
		}),
		OpportunitiesExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "opportunities_expired_total",
			Help:      "Total opportunities removed by the expiry sweep",
		}),
		TradesTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "trades_tracked",
			Help:      "Current number of trades held in memory",
		}),
		TradeCompletions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "trade_completions_total",
			Help:      "Total trade completions by final status",
		}, []string{"status"}),
		StaleTradePatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "stale_trade_patches_total",
			Help:      "Total trade updates dropped because the trade was already terminal",
		}),

		VaultTransactions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "transactions_total",
			Help:      "Total vault transactions by kind and outcome",
		}, []string{"kind", "outcome"}),
		VaultTxDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "transaction_duration_seconds",
			Help:      "Wall time of vault transaction flows in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		ExportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "exports_generated_total",
			Help:      "Total CSV exports generated",
		}),

		TradesArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "trades_archived_total",
			Help:      "Total trades written to the history archive",
		}),
		SnapshotsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "portfolio_snapshots_total",
			Help:      "Total portfolio snapshots persisted",
		}),
		DBErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persistence",
			Name:      "db_errors_total",
			Help:      "Total database errors by backend and operation",
		}, []string{"backend", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEvent increments the received counter for an event type.
func RecordEvent(event string) {
	DefaultMetrics.EventsReceived.WithLabelValues(event).Inc()
}

// RecordDecodeError records a payload decode failure for an event type.
func RecordDecodeError(event string) {
	DefaultMetrics.EventDecodeErrors.WithLabelValues(event).Inc()
}

// SetConnected updates the stream connectivity gauge.
func SetConnected(connected bool) {
	if connected {
		DefaultMetrics.StreamConnected.Set(1)
		return
	}
	DefaultMetrics.StreamConnected.Set(0)
}

// RecordReconnect counts one successful stream reconnect.
func RecordReconnect() {
	DefaultMetrics.Reconnects.Inc()
}

// SetOpportunitiesTracked updates the live-opportunity gauge.
func SetOpportunitiesTracked(n int) {
	DefaultMetrics.OpportunitiesTracked.Set(float64(n))
}

// SetTradesTracked updates the in-memory trade gauge.
func SetTradesTracked(n int) {
	DefaultMetrics.TradesTracked.Set(float64(n))
}

// RecordEvicted counts opportunities dropped by the capacity cap.
func RecordEvicted(n int) {
	DefaultMetrics.OpportunitiesEvicted.Add(float64(n))
}

// RecordStalePatch counts one trade update dropped against a terminal trade.
func RecordStalePatch() {
	DefaultMetrics.StaleTradePatches.Inc()
}

// RecordCompletion increments the completion counter for a final status.
func RecordCompletion(status string) {
	DefaultMetrics.TradeCompletions.WithLabelValues(status).Inc()
}

// RecordVaultTx records a vault transaction outcome.
func RecordVaultTx(kind, outcome string, seconds float64) {
	DefaultMetrics.VaultTransactions.WithLabelValues(kind, outcome).Inc()
	DefaultMetrics.VaultTxDuration.Observe(seconds)
}

// RecordDBError records a database error.
func RecordDBError(backend, operation string) {
	DefaultMetrics.DBErrors.WithLabelValues(backend, operation).Inc()
}

// RecordArchived counts one trade written to the history archive.
func RecordArchived() {
	DefaultMetrics.TradesArchived.Inc()
}

// RecordSnapshot counts one persisted portfolio snapshot.
func RecordSnapshot() {
	DefaultMetrics.SnapshotsPersisted.Inc()
}

// ObserveHTTP records one HTTP request's latency.
func ObserveHTTP(route, method string, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route, method).Observe(seconds)
}

// RecordExport counts one generated CSV export.
func RecordExport() {
	DefaultMetrics.ExportsGenerated.Inc()
}
