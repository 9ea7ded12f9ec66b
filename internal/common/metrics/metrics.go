// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "advisor_stage_duration_seconds",
			Help: "Duration of stage execution in seconds",
		},
		[]string{"stage"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_stage_failures_total",
			Help: "Total number of stage failures by error code",
		},
		[]string{"stage", "error_code"},
	)

	ProgressEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_progress_events_total",
			Help: "Total number of progress events emitted per pipeline state",
		},
		[]string{"state"},
	)

	SessionTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_session_turns_total",
			Help: "Total conversation turns by handling type",
		},
		[]string{"type"}, // pipeline | query
	)
)
