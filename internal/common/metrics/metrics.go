// internal/common/metrics/metrics.go
package metrics

import (
	"bell24h-workers/internal/matching"
	"bell24h-workers/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	ExternalMatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplier_match_external_total",
			Help: "External match attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	MatchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "supplier_match_results",
			Help:    "Number of ranked suppliers returned per call",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"source"},
	)
)

// Recorder feeds matcher events into the Prometheus collectors above.
type Recorder struct{}

var _ matching.Recorder = Recorder{}

func (Recorder) RecordExternalOutcome(provider string, outcome matching.Outcome) {
	ExternalMatchTotal.WithLabelValues(provider, string(outcome)).Inc()
}

func (Recorder) RecordResults(source models.MatchSource, count int) {
	MatchResults.WithLabelValues(string(source)).Observe(float64(count))
}
