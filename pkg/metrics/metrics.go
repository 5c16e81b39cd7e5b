// Package metrics exposes Prometheus metrics for sessions, collection loops
// and the HTTP front-end.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xscraper/pkg/collector"
)

const namespace = "xscraper"

// Metrics holds every collector on its own registry
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	sessionsTotal   *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	sessionsActive  prometheus.Gauge

	itemsCollected *prometheus.CounterVec
	cyclesTotal    *prometheus.CounterVec
	loopStops      *prometheus.CounterVec
	staleStreak    *prometheus.GaugeVec
}

// New creates the metrics and registers them with Go runtime collectors
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 9), // 10ms to ~11min
		},
		[]string{"method", "endpoint"},
	)
	m.sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished collection sessions by final state",
		},
		[]string{"state"},
	)
	m.sessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of collection sessions in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
	m.sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently running",
		},
	)
	m.itemsCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_collected_total",
			Help:      "Items accepted by collection loops",
		},
		[]string{"list"},
	)
	m.cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_cycles_total",
			Help:      "Collection loop cycles",
		},
		[]string{"list"},
	)
	m.loopStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_stops_total",
			Help:      "Collection loop terminations by reason",
		},
		[]string{"list", "reason"},
	)
	m.staleStreak = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loop_stale_streak",
			Help:      "Current stale streak of the most recent cycle",
		},
		[]string{"list"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.sessionsTotal,
		m.sessionDuration,
		m.sessionsActive,
		m.itemsCollected,
		m.cyclesTotal,
		m.loopStops,
		m.staleStreak,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and durations
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// SessionStarted marks a session as running
func (m *Metrics) SessionStarted() {
	m.sessionsActive.Inc()
}

// SessionFinished records the final state and duration of a session
func (m *Metrics) SessionFinished(state string, elapsed time.Duration) {
	m.sessionsActive.Dec()
	m.sessionsTotal.WithLabelValues(state).Inc()
	m.sessionDuration.Observe(elapsed.Seconds())
}

// OnCycle implements collector.Observer
func (m *Metrics) OnCycle(stats collector.CycleStats) {
	list := string(stats.Kind)
	m.cyclesTotal.WithLabelValues(list).Inc()
	m.itemsCollected.WithLabelValues(list).Add(float64(stats.Accepted))
	m.staleStreak.WithLabelValues(list).Set(float64(stats.StaleStreak))
}

// OnStop implements collector.Observer
func (m *Metrics) OnStop(stats collector.CycleStats, reason collector.StopReason) {
	m.loopStops.WithLabelValues(string(stats.Kind), string(reason)).Inc()
}
