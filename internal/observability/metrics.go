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
	// Refresh metrics
	FetchesTotal   *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
	FetchesSkipped prometheus.Counter
	MetricValue    *prometheus.GaugeVec
	Loading        prometheus.Gauge

	// Data source metrics
	SourceRequestLatency *prometheus.HistogramVec
	SourceRetries        prometheus.Counter

	// Viewer metrics
	ViewersConnected  prometheus.Gauge
	ViewersUnique     prometheus.Gauge
	BroadcastsDropped prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulFetch prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "b2s_dashboard"
	}

	return &Metrics{
		FetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "fetches_total",
			Help:      "Total number of completed metric fetches by status",
		}, []string{"status"}),
		FetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a full fetch cycle in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		FetchesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "fetches_skipped_total",
			Help:      "Ticks skipped because a fetch was still in flight",
		}),
		MetricValue: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "metric_value",
			Help:      "Latest displayed metric value by field",
		}, []string{"contract", "field"}),
		Loading: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "loading",
			Help:      "1 while the dashboard waits for its first fetch",
		}),

		SourceRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "request_latency_seconds",
			Help:      "Data source request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		SourceRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "retries_total",
			Help:      "Total number of data source request retries",
		}),

		ViewersConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "viewers",
			Name:      "connected",
			Help:      "Currently connected WebSocket viewers",
		}),
		ViewersUnique: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "viewers",
			Name:      "unique_estimate",
			Help:      "Estimated number of distinct viewer addresses since start",
		}),
		BroadcastsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewers",
			Name:      "broadcasts_dropped_total",
			Help:      "Snapshots dropped because a viewer's queue was full",
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

		LastSuccessfulFetch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_fetch_timestamp",
			Help:      "Unix timestamp of last successful metrics fetch",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFetch records a completed fetch cycle.
func RecordFetch(status string, seconds float64) {
	DefaultMetrics.FetchesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.FetchDuration.Observe(seconds)
}

// RecordFetchSkipped increments the skipped tick counter.
func RecordFetchSkipped() {
	DefaultMetrics.FetchesSkipped.Inc()
}

// UpdateDisplayed publishes the currently displayed values.
func UpdateDisplayed(contract string, totalVolume float64, activeUsers int64, totalStaked float64, txns24h int64, updatedAtUnix int64) {
	DefaultMetrics.MetricValue.WithLabelValues(contract, "total_volume").Set(totalVolume)
	DefaultMetrics.MetricValue.WithLabelValues(contract, "active_users").Set(float64(activeUsers))
	DefaultMetrics.MetricValue.WithLabelValues(contract, "total_staked").Set(totalStaked)
	DefaultMetrics.MetricValue.WithLabelValues(contract, "transactions_24h").Set(float64(txns24h))
	DefaultMetrics.LastSuccessfulFetch.Set(float64(updatedAtUnix))
}

// SetLoading updates the loading gauge.
func SetLoading(loading bool) {
	if loading {
		DefaultMetrics.Loading.Set(1)
		return
	}
	DefaultMetrics.Loading.Set(0)
}

// RecordSourceLatency records data source request latency.
func RecordSourceLatency(source string, seconds float64) {
	DefaultMetrics.SourceRequestLatency.WithLabelValues(source).Observe(seconds)
}

// RecordSourceRetry increments the source retry counter.
func RecordSourceRetry() {
	DefaultMetrics.SourceRetries.Inc()
}

// UpdateViewers updates viewer gauges.
func UpdateViewers(connected int, unique uint64) {
	DefaultMetrics.ViewersConnected.Set(float64(connected))
	DefaultMetrics.ViewersUnique.Set(float64(unique))
}

// RecordBroadcastDropped increments the dropped broadcast counter.
func RecordBroadcastDropped() {
	DefaultMetrics.BroadcastsDropped.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
