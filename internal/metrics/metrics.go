// CourtVision - Live College Basketball Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courtvision

// Package metrics provides Prometheus instrumentation for the pipeline.
//
// Metrics are registered with the default registry via promauto and
// exposed at /metrics in Prometheus text format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics

	IngestCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_cycles_total",
			Help: "Total ingestion cycles by outcome",
		},
		[]string{"outcome"}, // success, error
	)

	IngestCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_cycle_duration_seconds",
			Help:    "Duration of a full ingestion cycle",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_requests_total",
			Help: "Upstream feed requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	FeedRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_request_duration_seconds",
			Help:    "Upstream feed request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Event log metrics

	PlaysAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventlog_plays_appended_total",
			Help: "Plays appended to the event log",
		},
	)

	PlaysDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventlog_plays_deduplicated_total",
			Help: "Plays skipped because they were already seen",
		},
	)

	// Stream processor metrics

	PlaysWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "processor_plays_written_total",
			Help: "Play records persisted to the state store",
		},
	)

	PlaysRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processor_plays_rejected_total",
			Help: "Plays rejected during processing",
		},
		[]string{"reason"}, // validation, duplicate, poison
	)

	StaleSequenceSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "processor_stale_sequence_skips_total",
			Help: "Score writes rejected by the sequence guard",
		},
	)

	ProcessorBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "processor_batch_duration_seconds",
			Help:    "Time to materialize one play batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Reactor metrics

	PatternsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactor_patterns_detected_total",
			Help: "Patterns written by type",
		},
		[]string{"type"},
	)

	EstimatesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reactor_estimates_written_total",
			Help: "Win-probability estimates written",
		},
	)

	CommentaryGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reactor_commentary_generated_total",
			Help: "Commentary records written",
		},
	)

	ReactorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reactor_errors_total",
			Help: "Reactor failures by reactor name",
		},
		[]string{"reactor"},
	)

	// AI inference metrics

	InferenceCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_calls_total",
			Help: "Model inference calls by outcome",
		},
		[]string{"outcome"}, // success, error, degraded, rejected
	)

	InferenceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inference_duration_seconds",
			Help:    "Model inference latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	// Gateway metrics

	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Active WebSocket connections",
		},
	)

	Subscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_subscriptions",
			Help: "Active game subscriptions across all connections",
		},
	)

	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Push messages delivered to clients by type",
		},
		[]string{"type"},
	)

	PushEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_evictions_total",
			Help: "Connections evicted after failed delivery",
		},
	)

	// HTTP metrics

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordHTTPRequest tracks a completed HTTP request.
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordFeedRequest tracks a completed upstream feed request.
func RecordFeedRequest(endpoint string, status int, duration time.Duration) {
	FeedRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	FeedRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordInference tracks one model inference call.
func RecordInference(outcome string, duration time.Duration) {
	InferenceCalls.WithLabelValues(outcome).Inc()
	InferenceDuration.Observe(duration.Seconds())
}
