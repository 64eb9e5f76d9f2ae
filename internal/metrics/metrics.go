// Package metrics provides Prometheus instrumentation for the payments engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RecordsTotal counts records handed to the processor, by kind and outcome.
	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_records_total",
		Help: "Transaction records processed",
	}, []string{"kind", "outcome"})

	// RejectionsTotal counts rejected records by reason.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_rejections_total",
		Help: "Transaction records rejected by the processor",
	}, []string{"reason"})

	// MalformedRowsTotal counts input rows dropped by the record source.
	MalformedRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_malformed_rows_total",
		Help: "Input rows dropped because they could not be parsed",
	})

	// ApplyLatency tracks per-record apply latency by kind.
	ApplyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payments_apply_latency_seconds",
		Help:    "Per-record apply latency in seconds",
		Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.01},
	}, []string{"kind"})

	// Accounts tracks the number of known accounts.
	Accounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payments_accounts",
		Help: "Number of client accounts seen in the current run",
	})

	// LockedAccounts tracks accounts frozen by a chargeback.
	LockedAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payments_locked_accounts",
		Help: "Number of accounts locked by a chargeback",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payments_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payments_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for the path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(statusOf(wrapped))).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusOf treats an unwritten header as 200, matching net/http.
func statusOf(w middleware.WrapResponseWriter) int {
	if w.Status() == 0 {
		return http.StatusOK
	}
	return w.Status()
}
