package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the ledger service.
type Metrics struct {
	// Ledger metrics
	EntriesWritten   *prometheus.CounterVec
	AttributionStats *prometheus.CounterVec
	WriteErrors      *prometheus.CounterVec

	// Report metrics
	ReportRequests *prometheus.CounterVec
	QueryLatency   *prometheus.HistogramVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// System metrics
	DBConnections *prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

var (
	// DefaultMetrics is the global metrics instance
	DefaultMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		// Ledger metrics
		EntriesWritten: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries_written_total",
				Help:      "Total ledger entries written",
			},
			[]string{"activity"},
		),
		AttributionStats: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attribution_stats_total",
				Help:      "Total source attribution stats recorded",
			},
			[]string{"type"},
		),
		WriteErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "write_errors_total",
				Help:      "Failed ledger writes by kind",
			},
			[]string{"kind"},
		),

		// Report metrics
		ReportRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_requests_total",
				Help:      "Report requests served",
			},
			[]string{"report"},
		),
		QueryLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_latency_seconds",
				Help:      "Aggregation query latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"query"},
		),

		// Cache metrics
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Query cache hits",
			},
			[]string{"namespace"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Query cache misses",
			},
			[]string{"namespace"},
		),

		// System metrics
		DBConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "Database connection pool stats",
			},
			[]string{"state"}, // idle, in_use, total
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint", "ip"},
		),
	}

	DefaultMetrics = m
	return m
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEntryWritten records a persisted ledger entry.
func (m *Metrics) RecordEntryWritten(activity string) {
	m.EntriesWritten.WithLabelValues(activity).Inc()
}

// RecordAttributionStat records a persisted attribution stat.
func (m *Metrics) RecordAttributionStat(statType string) {
	m.AttributionStats.WithLabelValues(statType).Inc()
}

// RecordWriteError records a failed write.
func (m *Metrics) RecordWriteError(kind string) {
	m.WriteErrors.WithLabelValues(kind).Inc()
}

// RecordReportRequest records a report request.
func (m *Metrics) RecordReportRequest(report string) {
	m.ReportRequests.WithLabelValues(report).Inc()
}

// RecordQueryLatency records an aggregation query duration.
func (m *Metrics) RecordQueryLatency(query string, latency time.Duration) {
	m.QueryLatency.WithLabelValues(query).Observe(latency.Seconds())
}

// RecordCacheHit records a query cache hit.
func (m *Metrics) RecordCacheHit(namespace string) {
	m.CacheHits.WithLabelValues(namespace).Inc()
}

// RecordCacheMiss records a query cache miss.
func (m *Metrics) RecordCacheMiss(namespace string) {
	m.CacheMisses.WithLabelValues(namespace).Inc()
}

// UpdateDBStats updates database connection metrics.
func (m *Metrics) UpdateDBStats(idle, inUse, total int) {
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("total").Set(float64(total))
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint, ip string) {
	m.RateLimitHits.WithLabelValues(endpoint, ip).Inc()
}
