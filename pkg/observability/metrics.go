package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ticket retrieval metrics
	TicketRetrievalsTotal *prometheus.CounterVec
	TicketsReturned       prometheus.Histogram
	RetrievalErrorsTotal  prometheus.Counter

	// Scope resolution metrics. The "outcome" label distinguishes clean
	// resolutions from policy fallbacks (fail_open / fail_closed).
	ScopeResolutionsTotal *prometheus.CounterVec

	// Session metrics
	SessionValidationsTotal *prometheus.CounterVec
	SessionsSweptTotal      prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copperdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copperdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		TicketRetrievalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copperdesk_ticket_retrievals_total",
				Help: "Total number of ticket retrieval requests by effective scope",
			},
			[]string{"scope", "status"},
		),
		TicketsReturned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "copperdesk_tickets_returned",
				Help:    "Number of tickets returned per retrieval",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		RetrievalErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "copperdesk_retrieval_errors_total",
				Help: "Total number of failed ticket queries",
			},
		),
		ScopeResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copperdesk_scope_resolutions_total",
				Help: "Total number of access scope resolutions",
			},
			[]string{"scope", "outcome"},
		),
		SessionValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copperdesk_session_validations_total",
				Help: "Total number of session validations",
			},
			[]string{"result"},
		),
		SessionsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "copperdesk_sessions_swept_total",
				Help: "Total number of expired sessions removed by the sweeper",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "copperdesk_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "copperdesk_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TicketRetrievalsTotal,
		m.TicketsReturned,
		m.RetrievalErrorsTotal,
		m.ScopeResolutionsTotal,
		m.SessionValidationsTotal,
		m.SessionsSweptTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// UpdateDBStats updates database connection pool gauges
func (m *Metrics) UpdateDBStats(db *sql.DB) {
	stats := db.Stats()
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// HTTPMiddleware instruments HTTP handlers with request metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
