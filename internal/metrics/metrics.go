package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	feedRuns        *prometheus.CounterVec
	feedRunDuration *prometheus.HistogramVec
	itemsProcessed  *prometheus.CounterVec
	alertsCreated   *prometheus.CounterVec
	alertsExpired   prometheus.Counter
	dbQueries       *prometheus.CounterVec
	dbConnsActive   prometheus.Gauge
)

// Init registers all collectors. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		registry = prometheus.NewRegistry()

		httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterwatch",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"})

		httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "disasterwatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"})

		feedRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterwatch",
			Name:      "feed_runs_total",
			Help:      "Per-feed pipeline runs by outcome.",
		}, []string{"feed", "status"})

		feedRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "disasterwatch",
			Name:      "feed_run_duration_seconds",
			Help:      "Duration of one fetch-parse-store cycle for a feed.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"feed"})

		itemsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterwatch",
			Name:      "feed_items_total",
			Help:      "Feed items by processing outcome (stored, dropped, deduplicated).",
		}, []string{"feed", "outcome"})

		alertsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterwatch",
			Name:      "alerts_created_total",
			Help:      "Alerts created by type and severity.",
		}, []string{"type", "severity"})

		alertsExpired = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "disasterwatch",
			Name:      "alerts_expired_total",
			Help:      "Alerts deactivated by the expiry sweep.",
		})

		dbQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disasterwatch",
			Name:      "db_queries_total",
			Help:      "Database operations by type and status.",
		}, []string{"operation", "status"})

		dbConnsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "disasterwatch",
			Name:      "db_connections_active",
			Help:      "Currently acquired database pool connections.",
		})

		registry.MustRegister(
			httpRequests, httpDuration,
			feedRuns, feedRunDuration, itemsProcessed,
			alertsCreated, alertsExpired,
			dbQueries, dbConnsActive,
		)
	})
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	Init()
	httpRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordFeedRun records the outcome and duration of one feed cycle
func RecordFeedRun(feed, status string, duration time.Duration) {
	Init()
	feedRuns.WithLabelValues(feed, status).Inc()
	feedRunDuration.WithLabelValues(feed).Observe(duration.Seconds())
}

// RecordItems records item outcomes for a feed: stored, dropped, deduplicated
func RecordItems(feed, outcome string, count int) {
	if count <= 0 {
		return
	}
	Init()
	itemsProcessed.WithLabelValues(feed, outcome).Add(float64(count))
}

// RecordAlertCreated records a newly created alert
func RecordAlertCreated(alertType, severity string) {
	Init()
	alertsCreated.WithLabelValues(alertType, severity).Inc()
}

// RecordAlertsExpired records alerts deactivated by a sweep
func RecordAlertsExpired(count int64) {
	if count <= 0 {
		return
	}
	Init()
	alertsExpired.Add(float64(count))
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	Init()
	dbQueries.WithLabelValues(operation, status).Inc()
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	Init()
	dbConnsActive.Set(count)
}
