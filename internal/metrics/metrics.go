package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many instances as they like.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	aiDuration      *prometheus.HistogramVec
	notifications   *prometheus.CounterVec
	complaints      *prometheus.CounterVec
	transitions     *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		aiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ai_analysis_duration_seconds",
			Help:    "Duration of AI provider calls by kind and outcome",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"kind", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by notifier and outcome",
		}, []string{"notifier", "outcome"}),
		complaints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_submitted_total",
			Help: "Complaints submitted by initial priority",
		}, []string{"priority"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "complaint_transitions_total",
			Help: "Accepted complaint status transitions",
		}, []string{"from", "to"}),
	}

	registry.MustRegister(
		m.requestDuration,
		m.requestTotal,
		m.aiDuration,
		m.notifications,
		m.complaints,
		m.transitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

func (m *Metrics) Handler() http.Handler {
	return m.handler
}

func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

func (m *Metrics) ObserveAI(kind, outcome string, d time.Duration) {
	m.aiDuration.WithLabelValues(kind, outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveNotification(notifier, outcome string) {
	m.notifications.WithLabelValues(notifier, outcome).Inc()
}

func (m *Metrics) ComplaintSubmitted(priority string) {
	m.complaints.WithLabelValues(priority).Inc()
}

func (m *Metrics) TransitionAccepted(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}
