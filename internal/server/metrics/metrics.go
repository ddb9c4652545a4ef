// Package metrics defines Prometheus metrics for the blog server.
//
// Metrics live in a dedicated registry served by Handler, so tests can build
// independent instances.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts HTTP requests by method, route pattern and status.
	RequestsTotal *prometheus.CounterVec
	// RequestDurationSeconds is a histogram of handler latency by route pattern.
	RequestDurationSeconds *prometheus.HistogramVec
	// AuthAttemptsTotal counts signup/login outcomes.
	AuthAttemptsTotal *prometheus.CounterVec
	// LikeTogglesTotal counts like toggles.
	LikeTogglesTotal prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Authentication attempts by operation and result.",
			},
			[]string{"op", "result"},
		),
		LikeTogglesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "post_like_toggles_total",
				Help: "Total like toggles on posts.",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSeconds,
		m.AuthAttemptsTotal,
		m.LikeTogglesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDurationSeconds.WithLabelValues(route).Observe(d.Seconds())
}

// RecordAuth records the outcome of a signup or login.
func (m *Metrics) RecordAuth(op string, ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	m.AuthAttemptsTotal.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
