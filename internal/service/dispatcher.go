package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/model"
)

const (
	TaskTypePipeline = "pipeline:run"
	QueuePipeline    = "pipeline"
)

// Dispatcher hands a created job to whatever runs the pipeline
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string, req model.JobRequest) error
}

// Runner executes the pipeline for one job
type Runner interface {
	Run(ctx context.Context, jobID string, req model.JobRequest) error
}

// GoroutineDispatcher runs each job on its own goroutine in this process.
// The run is detached from the request context.
type GoroutineDispatcher struct {
	runner Runner
	logger *zap.SugaredLogger
}

func NewGoroutineDispatcher(runner Runner, logger *zap.SugaredLogger) *GoroutineDispatcher {
	return &GoroutineDispatcher{runner: runner, logger: logger}
}

func (d *GoroutineDispatcher) Dispatch(_ context.Context, jobID string, req model.JobRequest) error {
	go func() {
		if err := d.runner.Run(context.Background(), jobID, req); err != nil {
			d.logger.Warnw("Pipeline run ended with error", "jobId", jobID, "error", err)
		}
	}()
	return nil
}

// AsynqDispatcher enqueues jobs on the asynq pipeline queue
type AsynqDispatcher struct {
	client *asynq.Client
}

func NewAsynqDispatcher(client *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, jobID string, req model.JobRequest) error {
	task, err := NewPipelineTask(jobID, req)
	if err != nil {
		return errors.Wrap(err, "failed to create task")
	}

	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(QueuePipeline),
		asynq.TaskID(jobID),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return errors.Wrap(err, "failed to enqueue task")
	}
	return nil
}

// PipelineTaskPayload is the JSON body of a pipeline task
type PipelineTaskPayload struct {
	JobID   string           `json:"jobId"`
	Payload model.JobRequest `json:"payload"`
}

// NewPipelineTask builds the asynq task for a job
func NewPipelineTask(jobID string, req model.JobRequest) (*asynq.Task, error) {
	data, err := json.Marshal(PipelineTaskPayload{JobID: jobID, Payload: req})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePipeline, data), nil
}

// ParsePipelineTask decodes a task built by NewPipelineTask
func ParsePipelineTask(t *asynq.Task) (PipelineTaskPayload, error) {
	var p PipelineTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, errors.Wrap(err, "failed to unmarshal task payload")
	}
	if p.JobID == "" {
		return p, errors.New("task payload has no job id")
	}
	return p, nil
}
