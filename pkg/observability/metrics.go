package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the provisioning daemon
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Peer command metrics
	PeerCommandsTotal   *prometheus.CounterVec
	PeerCommandDuration *prometheus.HistogramVec

	// Storage metrics
	StoreSavesTotal prometheus.Counter
	StoreSaveErrors prometheus.Counter

	// Domain gauges
	UsersTotal   prometheus.Gauge
	PoolFree     prometheus.Gauge
	PoolCapacity prometheus.Gauge

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
				Name: "awgman_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "awgman_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PeerCommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "awgman_peer_commands_total",
				Help: "Total number of interface tool invocations",
			},
			[]string{"operation", "outcome"},
		),
		PeerCommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "awgman_peer_command_duration_seconds",
				Help:    "Interface tool invocation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		StoreSavesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "awgman_store_saves_total",
				Help: "Total number of user store rewrites",
			},
		),
		StoreSaveErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "awgman_store_save_errors_total",
				Help: "Total number of failed user store rewrites",
			},
		),
		UsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "awgman_users_total",
				Help: "Number of provisioned users",
			},
		),
		PoolFree: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "awgman_pool_free_addresses",
				Help: "Number of free addresses in the VPN subnet pool",
			},
		),
		PoolCapacity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "awgman_pool_capacity_addresses",
				Help: "Total host addresses in the VPN subnet pool",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PeerCommandsTotal,
		m.PeerCommandDuration,
		m.StoreSavesTotal,
		m.StoreSaveErrors,
		m.UsersTotal,
		m.PoolFree,
		m.PoolCapacity,
	)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePeerCommand records one interface tool invocation
func (m *Metrics) ObservePeerCommand(operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.PeerCommandsTotal.WithLabelValues(operation, outcome).Inc()
	m.PeerCommandDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// InstrumentHandler wraps an HTTP handler with request counting and timing.
// The path label uses the route template, not the raw URL, to bound
// cardinality.
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusWriter captures the response status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
