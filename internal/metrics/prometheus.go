// Package metrics defines Prometheus instrumentation for the voice chat
// client: turn lifecycle, backend exchanges, and cache activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the client.
type Metrics struct {
	// Turn lifecycle metrics
	TurnsStarted   prometheus.Counter
	TurnsCompleted prometheus.Counter
	TurnsFailed    *prometheus.CounterVec
	TurnsAborted   prometheus.Counter
	TurnDuration   prometheus.Histogram

	// Recording metrics
	RecordingDuration prometheus.Histogram
	RecordingBytes    prometheus.Histogram
	EmptyRecordings   prometheus.Counter

	// Exchange metrics
	ExchangeRequests prometheus.Counter
	ExchangeFailures prometheus.Counter
	ExchangeDuration prometheus.Histogram

	// Cache metrics
	CacheSeeds           prometheus.Counter
	CacheAppends         prometheus.Counter
	SummaryInvalidations prometheus.Counter

	// Controller state gauge (0=idle, 1=recording, 2=processing)
	ControllerState prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "percepto_turns_started_total",
			Help: "Total number of voice turns started",
		}),
		TurnsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "percepto_turns_completed_total",
			Help: "Total number of voice turns completed successfully",
		}),
		TurnsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "percepto_turns_failed_total",
			Help: "Total number of voice turns that failed",
		}, []string{"reason"}),
		TurnsAborted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "percepto_turns_aborted_total",
			Help: "Total number of voice turns aborted by the user",
		}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "percepto_turn_duration_seconds",
			Help:    "End-to-end duration of voice turns",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~8.5 minutes
		}),

		RecordingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "percepto_recording_duration_seconds",
			Help:    "Duration of finalized recording segments",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~2 minutes
		}),
		RecordingBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "percepto_recording_size_bytes",
			Help:    "Size of finalized recording segments in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
		EmptyRecordings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "percepto_empty_recordings_total",
			Help: "Total number of recordings that captured no audio",
		}),

		ExchangeRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "percepto_exchange_requests_total",
			Help: "Total number of turn submissions sent to the backend",
		}),
		ExchangeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "percepto_exchange_failures_total",
			Help: "Total number of failed turn submissions",
		}),
		ExchangeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "percepto_exchange_duration_seconds",
			Help:    "Duration of turn submissions",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		CacheSeeds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "percepto_cache_seeds_total",
			Help: "Total number of conversation cache seeds",
		}),
		CacheAppends: promauto.NewCounter(prometheus.CounterOpts{
			Name: "percepto_cache_appends_total",
			Help: "Total number of turn pairs appended to the cache",
		}),
		SummaryInvalidations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "percepto_summary_invalidations_total",
			Help: "Total number of summary cache invalidations",
		}),

		ControllerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "percepto_controller_state",
			Help: "Current turn controller state (0=idle, 1=recording, 2=processing)",
		}),
	}
}

// RecordTurnStarted increments the turns started counter.
func (m *Metrics) RecordTurnStarted() {
	m.TurnsStarted.Inc()
}

// RecordTurnCompleted records a successful turn with its total duration.
func (m *Metrics) RecordTurnCompleted(durationSeconds float64) {
	m.TurnsCompleted.Inc()
	m.TurnDuration.Observe(durationSeconds)
}

// RecordTurnFailed records a failed turn labeled by failure reason.
func (m *Metrics) RecordTurnFailed(reason string) {
	m.TurnsFailed.WithLabelValues(reason).Inc()
}

// RecordTurnAborted increments the aborted turns counter.
func (m *Metrics) RecordTurnAborted() {
	m.TurnsAborted.Inc()
}

// RecordSegment records a finalized recording segment.
func (m *Metrics) RecordSegment(durationSeconds float64, sizeBytes int) {
	m.RecordingDuration.Observe(durationSeconds)
	m.RecordingBytes.Observe(float64(sizeBytes))
}

// RecordEmptyRecording increments the empty recordings counter.
func (m *Metrics) RecordEmptyRecording() {
	m.EmptyRecordings.Inc()
}

// RecordExchange records one turn submission attempt.
func (m *Metrics) RecordExchange(success bool, durationSeconds float64) {
	m.ExchangeRequests.Inc()
	if !success {
		m.ExchangeFailures.Inc()
	}
	m.ExchangeDuration.Observe(durationSeconds)
}

// RecordCacheSeed increments the cache seed counter.
func (m *Metrics) RecordCacheSeed() {
	m.CacheSeeds.Inc()
}

// RecordCacheAppend increments the cache append counter.
func (m *Metrics) RecordCacheAppend() {
	m.CacheAppends.Inc()
}

// RecordSummaryInvalidation increments the summary invalidation counter.
func (m *Metrics) RecordSummaryInvalidation() {
	m.SummaryInvalidations.Inc()
}

// SetControllerState publishes the controller's current state.
func (m *Metrics) SetControllerState(state int) {
	m.ControllerState.Set(float64(state))
}
