package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rtdacademy/rtd-connect-api/pkg/jobs"
)

// MetricsSnapshot is a lightweight view of the counters for health output.
type MetricsSnapshot struct {
	RequestsTotal            uint64  `json:"requests_total"`
	AverageRequestDurationMs float64 `json:"average_request_duration_ms"`
	CacheHits                uint64  `json:"cache_hits"`
	CacheMisses              uint64  `json:"cache_misses"`
	CacheHitRatio            float64 `json:"cache_hit_ratio"`
	TermEvaluations          uint64  `json:"term_evaluations"`
	FundingDeterminations    uint64  `json:"funding_determinations"`
	Goroutines               int     `json:"goroutines"`
}

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and eligibility work.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Histogram
	cacheWrite        prometheus.Histogram
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	termEvaluations   *prometheus.CounterVec
	fundingResults    *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	recomputeStudents prometheus.Gauge

	requestCount         atomic.Uint64
	requestDurationTotal atomic.Uint64
	cacheHitCount        atomic.Uint64
	cacheMissCount       atomic.Uint64
	termEvalCount        atomic.Uint64
	fundingCount         atomic.Uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
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
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		termEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "term_evaluations_total",
			Help: "Enrollment term evaluations by correctness outcome",
		}, []string{"outcome"}),
		fundingResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "funding_determinations_total",
			Help: "Funding eligibility determinations by age category",
		}, []string{"category", "eligible"}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "funding_recompute_duration_seconds",
			Help:    "Duration of funding snapshot recomputes",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		recomputeStudents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "funding_recompute_students",
			Help: "Students evaluated by the last funding recompute",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheHits,
		m.cacheMisses, m.termEvaluations, m.fundingResults, m.recomputeDuration, m.recomputeStudents, goroutines)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// RegisterQueue publishes pending and processed counts for a job queue.
func (m *MetricsService) RegisterQueue(q *jobs.Queue) error {
	if m == nil || q == nil {
		return nil
	}
	name := q.Stats().Name
	pending := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "job_queue_pending",
		Help:        "Jobs waiting in the queue",
		ConstLabels: prometheus.Labels{"queue": name},
	}, func() float64 { return float64(q.Stats().Pending) })
	failed := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name:        "job_queue_failed_total",
		Help:        "Jobs that exhausted their retries",
		ConstLabels: prometheus.Labels{"queue": name},
	}, func() float64 { return float64(q.Stats().Failed) })
	succeeded := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name:        "job_queue_succeeded_total",
		Help:        "Jobs processed successfully",
		ConstLabels: prometheus.Labels{"queue": name},
	}, func() float64 { return float64(q.Stats().Succeeded) })
	for _, c := range []prometheus.Collector{pending, failed, succeeded} {
		if err := m.registry.Register(c); err != nil {
			return fmt.Errorf("register queue metrics %s: %w", name, err)
		}
	}
	return nil
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	m.requestCount.Add(1)
	m.requestDurationTotal.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		m.cacheHitCount.Add(1)
	} else {
		m.cacheMisses.Inc()
		m.cacheMissCount.Add(1)
	}
	hits := m.cacheHitCount.Load()
	total := hits + m.cacheMissCount.Load()
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordTermEvaluation counts one evaluated enrollment.
func (m *MetricsService) RecordTermEvaluation(outcome string) {
	if m == nil {
		return
	}
	m.termEvaluations.WithLabelValues(outcome).Inc()
	m.termEvalCount.Add(1)
}

// RecordFundingDetermination counts one funding result.
func (m *MetricsService) RecordFundingDetermination(category string, eligible bool) {
	if m == nil {
		return
	}
	m.fundingResults.WithLabelValues(category, fmt.Sprintf("%t", eligible)).Inc()
	m.fundingCount.Add(1)
}

// ObserveFundingRecompute records a finished batch.
func (m *MetricsService) ObserveFundingRecompute(students int, duration time.Duration) {
	if m == nil {
		return
	}
	m.recomputeDuration.Observe(duration.Seconds())
	m.recomputeStudents.Set(float64(students))
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := m.cacheHitCount.Load()
	misses := m.cacheMissCount.Load()
	requests := m.requestCount.Load()

	snap := MetricsSnapshot{
		RequestsTotal:         requests,
		CacheHits:             hits,
		CacheMisses:           misses,
		TermEvaluations:       m.termEvalCount.Load(),
		FundingDeterminations: m.fundingCount.Load(),
		Goroutines:            runtime.NumGoroutine(),
	}
	if hits+misses > 0 {
		snap.CacheHitRatio = float64(hits) / float64(hits+misses)
	}
	if requests > 0 {
		snap.AverageRequestDurationMs = float64(m.requestDurationTotal.Load()) / float64(requests) / float64(time.Millisecond)
	}
	return snap
}
