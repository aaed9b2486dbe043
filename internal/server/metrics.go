package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics bundles every Prometheus series the HTTP server emits.
// One instance lives on Server; tests hand New a throwaway Registry so
// parallel tests never collide on the default registry.
type serverMetrics struct {
	// chat pipeline, partitioned by outcome: ok, invalid, error, stream_error.
	chatRequestsTotal   *prometheus.CounterVec
	chatDurationSeconds *prometheus.HistogramVec
	chatActiveStreams   prometheus.Gauge

	// whole-mux accounting, labelled by matched route pattern.
	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all series against reg via promauto.With.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	f := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Completed /chat requests by outcome.",
		}, []string{"outcome"}),

		chatDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Time from /chat receipt to stream completion.",
			// Streamed answers routinely run tens of seconds.
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),

		chatActiveStreams: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "docchat",
			Subsystem: "chat",
			Name:      "active_streams",
			Help:      "Chat responses currently streaming.",
		}),

		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, handler, and status code.",
		}, []string{"method", "handler", "code"}),

		httpDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "HTTP request latency by method and handler.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "handler"}),
	}
}

// instrument counts and times every request against the http_* series.
// The handler label is the mux's matched pattern, available on the
// request once ServeHTTP has dispatched it.
func (s *Server) instrument(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)

		handler := r.Pattern
		if handler == "" {
			handler = "unmatched"
		}
		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, handler, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, handler).Observe(time.Since(start).Seconds())
	})
}
