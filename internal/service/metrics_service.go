package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/schedule-browser/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	fetchTotal      *prometheus.CounterVec
	staleDiscards   *prometheus.CounterVec
	coalesced       *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	fetchCount           uint64
	fetchFailureCount    uint64
	fetchDurationTotal   uint64
	staleCount           uint64
	coalescedCount       uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of local API requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of local API requests",
	}, []string{"method", "path", "status"})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collection_fetch_duration_seconds",
		Help:    "Duration of remote collection fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection", "outcome"})

	fetchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collection_fetches_total",
		Help: "Total remote collection fetches by outcome",
	}, []string{"collection", "outcome"})

	staleDiscards := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stale_results_discarded_total",
		Help: "Fetch results dropped because a newer request was issued",
	}, []string{"controller"})

	coalesced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "search_inputs_coalesced_total",
		Help: "Search inputs superseded before their debounce fired",
	}, []string{"controller"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, fetchDuration, fetchTotal, staleDiscards, coalesced, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		fetchDuration:   fetchDuration,
		fetchTotal:      fetchTotal,
		staleDiscards:   staleDiscards,
		coalesced:       coalesced,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveFetch records a remote collection fetch. Outcome is "ok" or a failure reason.
func (m *MetricsService) ObserveFetch(collection, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(collection, outcome).Observe(duration.Seconds())
	m.fetchTotal.WithLabelValues(collection, outcome).Inc()
	atomic.AddUint64(&m.fetchCount, 1)
	atomic.AddUint64(&m.fetchDurationTotal, uint64(duration.Nanoseconds()))
	if outcome != "ok" {
		atomic.AddUint64(&m.fetchFailureCount, 1)
	}
}

// RecordStaleDiscard counts a result dropped by request-id comparison.
func (m *MetricsService) RecordStaleDiscard(controller string) {
	if m == nil {
		return
	}
	m.staleDiscards.WithLabelValues(controller).Inc()
	atomic.AddUint64(&m.staleCount, 1)
}

// RecordCoalescedInput counts a keystroke whose pending timer was replaced.
func (m *MetricsService) RecordCoalescedInput(controller string) {
	if m == nil {
		return
	}
	m.coalesced.WithLabelValues(controller).Inc()
	atomic.AddUint64(&m.coalescedCount, 1)
}

// Snapshot returns aggregated metrics suitable for the summary endpoint.
func (m *MetricsService) Snapshot() models.BrowserMetrics {
	if m == nil {
		return models.BrowserMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	fetches := atomic.LoadUint64(&m.fetchCount)
	fetchDuration := atomic.LoadUint64(&m.fetchDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgFetchMs float64
	if fetches > 0 {
		avgFetchMs = float64(fetchDuration) / float64(fetches) / float64(time.Millisecond)
	}

	return models.BrowserMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		FetchesTotal:             fetches,
		FetchFailures:            atomic.LoadUint64(&m.fetchFailureCount),
		AverageFetchDurationMs:   avgFetchMs,
		StaleDiscards:            atomic.LoadUint64(&m.staleCount),
		CoalescedInputs:          atomic.LoadUint64(&m.coalescedCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
