package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth outcomes counted by Metrics.AuthOutcomes
const (
	OutcomeLoginSuccess   = "login_success"
	OutcomeLoginFailure   = "login_failure"
	OutcomeRefresh        = "refresh"
	OutcomeRefreshReuse   = "refresh_reuse"
	OutcomeTokenRejected  = "token_rejected"
	OutcomePermissionDeny = "permission_denied"
	OutcomeOwnershipDeny  = "ownership_denied"
)

// Metrics holds the collectors of one server on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	inFlight        prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	AuthOutcomes    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		AuthOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_outcomes_total",
				Help: "Authentication and authorization decisions by outcome.",
			},
			[]string{"outcome"},
		),
	}
	m.Registry.MustRegister(m.inFlight, m.requestsTotal, m.requestDuration, m.AuthOutcomes)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) observe(outcome string) {
	if m != nil {
		m.AuthOutcomes.WithLabelValues(outcome).Inc()
	}
}

// Instrument records RPS, latency and in-flight requests. The path label is
// the route template so ids do not explode cardinality.
func (m *Metrics) Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
