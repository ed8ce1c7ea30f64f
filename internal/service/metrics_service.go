package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/lesson-planner-api/internal/models"
)

// MetricsService wraps the Prometheus registry used by the HTTP layer and the lesson engine.
// A nil *MetricsService is valid and records nothing.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheResults    *prometheus.CounterVec
	generationRuns  *prometheus.HistogramVec
	occurrencesNew  prometheus.Counter
	triggerDropped  prometheus.Counter
	checksCarried   prometheus.Counter
	cancellations   *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	generationRunCount   uint64
	generationFailCount  uint64
	occurrencesNewCount  uint64
	triggerDroppedCount  uint64
	checksCarriedCount   uint64
	cancellationCount    uint64
}

// NewMetricsService registers the collectors on a private registry.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agenda_cache_read_seconds",
		Help:    "Latency of agenda cache reads",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agenda_cache_write_seconds",
		Help:    "Latency of agenda cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agenda_cache_lookups_total",
		Help: "Agenda cache lookups by result",
	}, []string{"result"})

	generationRuns := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lesson_generation_duration_seconds",
		Help:    "Duration of schedule generation runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	occurrencesNew := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lesson_occurrences_created_total",
		Help: "Occurrences inserted by generation and makeup placement",
	})

	triggerDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lesson_generation_trigger_dropped_total",
		Help: "Generation requests ignored because a run was in progress",
	})

	checksCarried := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lesson_homework_checks_carried_total",
		Help: "Homework checks added by carry-over and cancellation",
	})

	cancellations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lesson_cancellations_total",
		Help: "Completed lesson cancellations by mode",
	}, []string{"mode"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheResults,
		generationRuns, occurrencesNew, triggerDropped, checksCarried, cancellations,
		goroutines,
	)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheResults:    cacheResults,
		generationRuns:  generationRuns,
		occurrencesNew:  occurrencesNew,
		triggerDropped:  triggerDropped,
		checksCarried:   checksCarried,
		cancellations:   cancellations,
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

// ObserveHTTPRequest records request metrics.
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

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheResults.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheResults.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordGenerationRun records one EnsureScheduleInRange pass. result is "ok" or "failed".
func (m *MetricsService) RecordGenerationRun(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationRuns.WithLabelValues(result).Observe(duration.Seconds())
	atomic.AddUint64(&m.generationRunCount, 1)
	if result != "ok" {
		atomic.AddUint64(&m.generationFailCount, 1)
	}
}

// AddOccurrencesCreated counts newly inserted occurrences.
func (m *MetricsService) AddOccurrencesCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.occurrencesNew.Add(float64(n))
	atomic.AddUint64(&m.occurrencesNewCount, uint64(n))
}

// RecordTriggerDropped counts a generation request discarded during a run.
func (m *MetricsService) RecordTriggerDropped() {
	if m == nil {
		return
	}
	m.triggerDropped.Inc()
	atomic.AddUint64(&m.triggerDroppedCount, 1)
}

// AddChecksCarried counts homework checks appended to a lesson.
func (m *MetricsService) AddChecksCarried(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.checksCarried.Add(float64(n))
	atomic.AddUint64(&m.checksCarriedCount, uint64(n))
}

// RecordCancellation counts a completed cancellation.
func (m *MetricsService) RecordCancellation(mode string) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(mode).Inc()
	atomic.AddUint64(&m.cancellationCount, 1)
}

// Snapshot returns aggregated counters for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            ratio,
		GenerationRuns:           atomic.LoadUint64(&m.generationRunCount),
		GenerationFailures:       atomic.LoadUint64(&m.generationFailCount),
		OccurrencesCreated:       atomic.LoadUint64(&m.occurrencesNewCount),
		TriggersDropped:          atomic.LoadUint64(&m.triggerDroppedCount),
		ChecksCarried:            atomic.LoadUint64(&m.checksCarriedCount),
		Cancellations:            atomic.LoadUint64(&m.cancellationCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
