// Package metrics provides Prometheus metric collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "biocup"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Ingestion pipeline metrics
	ReportsIndexedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_indexed_total",
			Help:      "Total number of reference reports indexed",
		},
		[]string{"status"},
	)

	ChunksPerReport = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "chunks_per_report",
			Help:      "Semantic chunks produced per report",
			Buckets:   []float64{1, 2, 4, 8, 12, 16, 24, 32},
		},
	)

	// Encoder metrics
	EncoderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "encoder",
			Name:      "call_duration_seconds",
			Help:      "Embedding encoder call duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"modality"},
	)

	EncoderCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "encoder",
			Name:      "call_total",
			Help:      "Total number of embedding encoder calls",
		},
		[]string{"modality", "status"},
	)

	// Vector index metrics
	QdrantSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "qdrant",
			Name:      "search_duration_seconds",
			Help:      "Qdrant search duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"collection", "modality"},
	)

	QdrantSearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qdrant",
			Name:      "search_total",
			Help:      "Total number of Qdrant searches",
		},
		[]string{"collection", "modality", "status"},
	)

	QdrantUpsertTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "qdrant",
			Name:      "upsert_total",
			Help:      "Total number of Qdrant upsert batches",
		},
		[]string{"collection", "status"},
	)

	// Diagnosis metrics
	DiagnosisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diagnosis",
			Name:      "total",
			Help:      "Total number of diagnostic retrievals",
		},
		[]string{"status"}, // ok / no_matches / failed
	)

	DiagnosisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "diagnosis",
			Name:      "duration_seconds",
			Help:      "End-to-end diagnostic retrieval duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// Explanation metrics
	ExplanationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "explanation",
			Name:      "total",
			Help:      "Total number of explanation generations",
		},
		[]string{"status"}, // ok / unavailable
	)
)
