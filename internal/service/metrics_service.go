package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the
// admission engine and its HTTP surface.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	decisionTotal        *prometheus.CounterVec
	decisionRetryTotal   prometheus.Counter
	verificationDuration prometheus.Histogram
	verificationFailures prometheus.Counter
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
}

// NewMetricsService registers the engine's Prometheus collectors on a
// private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	decisionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "admission_decisions_total",
		Help: "Admission decisions by terminal status",
	}, []string{"status"})

	decisionRetryTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "admission_decision_retries_total",
		Help: "Serializable commit attempts retried after a conflict",
	})

	verificationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "verification_call_duration_seconds",
		Help:    "Latency of external face verification calls",
		Buckets: prometheus.DefBuckets,
	})

	verificationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verification_failures_total",
		Help: "Face verification calls that did not confirm encoding",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "capacity_cache_hits_total",
		Help: "Capacity snapshot cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "capacity_cache_misses_total",
		Help: "Capacity snapshot cache misses",
	})

	registry.MustRegister(
		requestDuration,
		requestTotal,
		decisionTotal,
		decisionRetryTotal,
		verificationDuration,
		verificationFailures,
		cacheHits,
		cacheMisses,
	)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		decisionTotal:        decisionTotal,
		decisionRetryTotal:   decisionRetryTotal,
		verificationDuration: verificationDuration,
		verificationFailures: verificationFailures,
		cacheHits:            cacheHits,
		cacheMisses:          cacheMisses,
	}
}

// Handler exposes the /metrics endpoint handler.
func (s *MetricsService) Handler() http.Handler {
	if s == nil {
		return promhttp.Handler()
	}
	return s.handler
}

// ObserveHTTPRequest records a finished HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// RecordDecision counts a terminal decision by status.
func (s *MetricsService) RecordDecision(status string) {
	if s == nil {
		return
	}
	s.decisionTotal.WithLabelValues(status).Inc()
}

// RecordDecisionRetry counts one retried commit attempt.
func (s *MetricsService) RecordDecisionRetry() {
	if s == nil {
		return
	}
	s.decisionRetryTotal.Inc()
}

// RecordVerification records the duration and outcome of an external
// verification call.
func (s *MetricsService) RecordVerification(duration time.Duration, ok bool) {
	if s == nil {
		return
	}
	s.verificationDuration.Observe(duration.Seconds())
	if !ok {
		s.verificationFailures.Inc()
	}
}

// RecordCacheLookup counts a capacity cache hit or miss.
func (s *MetricsService) RecordCacheLookup(hit bool) {
	if s == nil {
		return
	}
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
}
