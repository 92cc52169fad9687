// Package metrics exposes Prometheus instrumentation for the HTTP
// surface and the pipeline stages.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts HTTP requests by endpoint and outcome.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podcast_requests_total",
		Help: "HTTP requests processed, by endpoint and status.",
	}, []string{"endpoint", "status"})

	// StageTotal counts pipeline stage executions by outcome.
	StageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podcast_pipeline_stage_total",
		Help: "Pipeline stage executions, by stage and status.",
	}, []string{"stage", "status"})

	// StageDuration tracks wall time per pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "podcast_pipeline_stage_duration_seconds",
		Help:    "Wall time spent in each pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"stage"})

	// SegmentsProcessed counts transcript segments run through feature
	// extraction.
	SegmentsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podcast_segments_processed_total",
		Help: "Transcript segments run through prosodic feature extraction.",
	})

	// ChunksIndexed counts chunks written to the vector store.
	ChunksIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podcast_chunks_indexed_total",
		Help: "Chunks upserted into the vector store.",
	})
)

// ObserveStage records one stage execution.
func ObserveStage(stage string, start time.Time, failed bool) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	status := "ok"
	if failed {
		status = "error"
	}
	StageTotal.WithLabelValues(stage, status).Inc()
}

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
