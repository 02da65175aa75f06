package camunda

import (
	"context"
	"fmt"

	"bell24h-workers/internal/common/errors"
	"bell24h-workers/internal/common/metrics"
	"bell24h-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// JobReporter completes or fails jobs for one task type and counts the result.
type JobReporter struct {
	taskType     string
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
}

func NewJobReporter(taskType string, errorHandler *errors.ErrorHandler, obs *observability.Observability) *JobReporter {
	return &JobReporter{taskType: taskType, errorHandler: errorHandler, obs: obs}
}

// Complete sends variables as the job result.
func (r *JobReporter) Complete(ctx context.Context, client worker.JobClient, job entities.Job, variables interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(variables)
	if err != nil {
		return fmt.Errorf("failed to create complete job command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("failed to send complete job command: %w", err)
	}

	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	r.obs.RecordJobProcessed(ctx, r.taskType, "completed")
	return nil
}

// Fail hands err to the error handler, which fails or throws depending on the code.
func (r *JobReporter) Fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := r.errorHandler.HandleJobError(ctx, client, job, err)

	metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(stdErr.Code)).Inc()
	r.obs.RecordJobProcessed(ctx, r.taskType, "failed")
}
