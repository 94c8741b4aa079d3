package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics holds the API-side instruments on a private registry so
// tests can construct throwaway instances without collision.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal          *prometheus.CounterVec
	queryPartialTotal   *prometheus.CounterVec
	queryResults        *prometheus.HistogramVec
	queryDuration       *prometheus.HistogramVec
	engineDuration      *prometheus.HistogramVec
	engineFailuresTotal *prometheus.CounterVec
	indexEntities       prometheus.Gauge
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finr",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finr",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finr",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finr",
			Subsystem: "retrieval",
			Name:      "queries_total",
			Help:      "Total answered queries by selected route.",
		},
		[]string{"service", "route"},
	)
	queryPartialTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finr",
			Subsystem: "retrieval",
			Name:      "partial_answers_total",
			Help:      "Total hybrid answers degraded by a failed engine.",
		},
		[]string{"service", "route"},
	)
	queryResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finr",
			Subsystem: "retrieval",
			Name:      "results_per_query",
			Help:      "Distribution of merged results per answered query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "route"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finr",
			Subsystem: "retrieval",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "route"},
	)
	engineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finr",
			Subsystem: "retrieval",
			Name:      "engine_duration_seconds",
			Help:      "Per-engine call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "engine"},
	)
	engineFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finr",
			Subsystem: "retrieval",
			Name:      "engine_failures_total",
			Help:      "Total engine failures observed while answering queries.",
		},
		[]string{"service", "engine"},
	)
	indexEntities := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finr",
			Subsystem: "index",
			Name:      "entities",
			Help:      "Entity count of the current table index snapshot.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryPartialTotal,
		queryResults,
		queryDuration,
		engineDuration,
		engineFailuresTotal,
		indexEntities,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		queryTotal:          queryTotal,
		queryPartialTotal:   queryPartialTotal,
		queryResults:        queryResults,
		queryDuration:       queryDuration,
		engineDuration:      engineDuration,
		engineFailuresTotal: engineFailuresTotal,
		indexEntities:       indexEntities,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RecordQuery observes one answered query.
func (m *HTTPServerMetrics) RecordQuery(service, route string, resultCount int, partial bool, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	m.queryTotal.WithLabelValues(service, route).Inc()
	m.queryResults.WithLabelValues(service, route).Observe(float64(resultCount))
	m.queryDuration.WithLabelValues(service, route).Observe(duration.Seconds())
	if partial {
		m.queryPartialTotal.WithLabelValues(service, route).Inc()
	}
}

// ObserveEngineDuration observes one engine call on the selected route,
// successful or not.
func (m *HTTPServerMetrics) ObserveEngineDuration(service, engine string, duration time.Duration) {
	if engine == "" {
		engine = "unknown"
	}
	m.engineDuration.WithLabelValues(service, engine).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordEngineFailure(service, engine string) {
	if engine == "" {
		engine = "unknown"
	}
	m.engineFailuresTotal.WithLabelValues(service, engine).Inc()
}

func (m *HTTPServerMetrics) SetIndexEntities(count int) {
	m.indexEntities.Set(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
