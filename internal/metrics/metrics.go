// Package metrics exposes the pipeline's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage label values.
const (
	StageJPEG = "jpeg"
	StageWEBP = "webp"
)

// Outcome label values. A swallowed transcode failure counts as "failed" even
// though the job itself completes, so silent failures stay visible.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

var (
	// StageTotal counts stage executions by outcome.
	StageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "previewgen_stage_total",
		Help: "Stage executions by stage kind and outcome.",
	}, []string{"stage", "outcome"})

	// StageDuration observes wall time per stage execution.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "previewgen_stage_duration_seconds",
		Help:    "Stage execution duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// NotificationsTotal counts published upload events.
	NotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "previewgen_notifications_total",
		Help: "Upload notifications published.",
	})
)
