package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the feedback consumer: persisted events, their
// handling latency, and how long events waited on the queue.
type WorkerMetrics struct {
	registry *prometheus.Registry

	feedbackTotal    *prometheus.CounterVec
	feedbackDuration *prometheus.HistogramVec
	feedbackInFlight prometheus.Gauge
	queueLag         *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	feedbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mathrag",
			Subsystem: "worker",
			Name:      "feedback_process_total",
			Help:      "Total processed feedback events by status.",
		},
		[]string{"service", "status"},
	)
	feedbackDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "worker",
			Name:      "feedback_process_duration_seconds",
			Help:      "Feedback persistence duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	feedbackInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mathrag",
			Subsystem: "worker",
			Name:      "feedback_process_in_flight",
			Help:      "Number of in-flight feedback persistence tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mathrag",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between feedback acceptance and persistence start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(feedbackTotal, feedbackDuration, feedbackInFlight, queueLag)

	return &WorkerMetrics{
		registry:         registry,
		feedbackTotal:    feedbackTotal,
		feedbackDuration: feedbackDuration,
		feedbackInFlight: feedbackInFlight,
		queueLag:         queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartFeedback() {
	m.feedbackInFlight.Inc()
}

func (m *WorkerMetrics) FinishFeedback(service string, duration time.Duration, err error) {
	m.feedbackInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.feedbackTotal.WithLabelValues(service, status).Inc()
	m.feedbackDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
