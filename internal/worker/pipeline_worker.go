package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/jobs"
	"github.com/contentpilot/api/internal/model"
	"github.com/contentpilot/api/internal/service"
)

// PipelineWorker processes queued pipeline tasks
type PipelineWorker struct {
	runner service.Runner
	store  *jobs.Store
	logger *zap.SugaredLogger
}

// NewPipelineWorker creates a new pipeline worker
func NewPipelineWorker(runner service.Runner, store *jobs.Store, logger *zap.SugaredLogger) *PipelineWorker {
	return &PipelineWorker{
		runner: runner,
		store:  store,
		logger: logger,
	}
}

// ProcessTask handles pipeline task processing
func (w *PipelineWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := service.ParsePipelineTask(t)
	if err != nil {
		// a malformed payload will never succeed
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	jobID := payload.JobID
	job, ok := w.store.Get(jobID)
	if !ok {
		// jobs live in process memory, so a task from a previous process has nothing to update
		w.logger.Warnw("Dropping task for unknown job", "jobId", jobID)
		return fmt.Errorf("job %s: %w: %w", jobID, jobs.ErrJobNotFound, asynq.SkipRetry)
	}
	if job.State.IsTerminal() {
		w.logger.Infow("Job already finished, skipping task", "jobId", jobID, "state", job.State)
		return nil
	}
	if job.State != model.JobStatePending {
		// a redelivered task must not race the run that already owns the job
		w.logger.Infow("Job already in progress, skipping task", "jobId", jobID, "state", job.State)
		return nil
	}

	w.logger.Infow("Starting pipeline job", "jobId", jobID)
	if err := w.runner.Run(ctx, jobID, payload.Payload); err != nil {
		// the runner has already failed the job
		return fmt.Errorf("pipeline %s: %w: %w", jobID, err, asynq.SkipRetry)
	}
	return nil
}

// Register wires the worker into an asynq mux
func (w *PipelineWorker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(service.TaskTypePipeline, w.ProcessTask)
}
