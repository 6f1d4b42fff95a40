package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics owns the API service registry: generic HTTP server
// series plus cascade outcome series recorded per resolved answer.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	confidence         *prometheus.HistogramVec
	quality            *prometheus.HistogramVec
	efficiency         *prometheus.HistogramVec
	supportingMatches  *prometheus.HistogramVec
	feedbackTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mathrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mathrag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	resolutionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mathrag",
			Subsystem: "cascade",
			Name:      "resolutions_total",
			Help:      "Total resolved questions by answering tier.",
		},
		[]string{"service", "source"},
	)
	resolutionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "cascade",
			Name:      "resolution_duration_seconds",
			Help:      "End-to-end resolution duration by answering tier.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "source"},
	)
	confidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "cascade",
			Name:      "confidence",
			Help:      "Distribution of final answer confidence by tier.",
			Buckets:   []float64{0, 0.2, 0.4, 0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1},
		},
		[]string{"service", "source"},
	)
	quality := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "cascade",
			Name:      "quality_score",
			Help:      "Distribution of answer quality scores.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)
	efficiency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "cascade",
			Name:      "efficiency_score",
			Help:      "Distribution of answer efficiency scores.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)
	supportingMatches := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "cascade",
			Name:      "supporting_matches",
			Help:      "Knowledge base matches attached to the final answer.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"service"},
	)
	feedbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mathrag",
			Subsystem: "cascade",
			Name:      "feedback_accepted_total",
			Help:      "Total accepted feedback submissions by rating.",
		},
		[]string{"service", "rating"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		resolutionsTotal,
		resolutionDuration,
		confidence,
		quality,
		efficiency,
		supportingMatches,
		feedbackTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		resolutionsTotal:   resolutionsTotal,
		resolutionDuration: resolutionDuration,
		confidence:         confidence,
		quality:            quality,
		efficiency:         efficiency,
		supportingMatches:  supportingMatches,
		feedbackTotal:      feedbackTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
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
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordResolution(service, source string, confidence, quality, efficiency float64, supporting int, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	m.resolutionsTotal.WithLabelValues(service, source).Inc()
	m.resolutionDuration.WithLabelValues(service, source).Observe(duration.Seconds())
	m.confidence.WithLabelValues(service, source).Observe(confidence)
	m.quality.WithLabelValues(service).Observe(quality)
	m.efficiency.WithLabelValues(service).Observe(efficiency)
	m.supportingMatches.WithLabelValues(service).Observe(float64(supporting))
}

func (m *HTTPServerMetrics) RecordFeedback(service string, rating int) {
	m.feedbackTotal.WithLabelValues(service, strconv.Itoa(rating)).Inc()
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
