package worker

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/generation"
	"github.com/contentpilot/api/internal/jobs"
	"github.com/contentpilot/api/internal/model"
	"github.com/contentpilot/api/internal/pipeline"
	"github.com/contentpilot/api/internal/reliability"
	"github.com/contentpilot/api/internal/scoring"
	"github.com/contentpilot/api/internal/service"
)

func newTestWorker() (*PipelineWorker, *jobs.Store) {
	logger := zap.NewNop().Sugar()
	store := jobs.NewStore(logger)
	exec := pipeline.NewExecutor(
		store,
		generation.NewRouter(logger, generation.DefaultOptions()),
		scoring.NewScorer(scoring.DefaultConfig()),
		nil,
		reliability.NewIdempotencyStore(),
		pipeline.Options{DefaultProvider: "gemini"},
		logger,
	)
	return NewPipelineWorker(exec, store, logger), store
}

func TestProcessTask_RunsPipeline(t *testing.T) {
	w, store := newTestWorker()
	req := model.JobRequest{URL: "https://example.com/guides/indoor-herb-garden", Mode: model.JobModeGenerate}
	_, err := store.Create("job-1", "", req.Mode, req.URL)
	require.NoError(t, err)

	task, err := service.NewPipelineTask("job-1", req)
	require.NoError(t, err)
	require.NoError(t, w.ProcessTask(context.Background(), task))

	job, _ := store.Get("job-1")
	assert.Equal(t, model.JobStateComplete, job.State)
	assert.Equal(t, 100, job.Progress)

	// redelivery is a no-op
	require.NoError(t, w.ProcessTask(context.Background(), task))
}

func TestProcessTask_SkipsRetryForBadInput(t *testing.T) {
	w, _ := newTestWorker()

	err := w.ProcessTask(context.Background(), asynq.NewTask(service.TaskTypePipeline, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, err := service.NewPipelineTask("unknown", model.JobRequest{URL: "https://example.com"})
	require.NoError(t, err)
	err = w.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestProcessTask_LeavesRunningJobAlone(t *testing.T) {
	w, store := newTestWorker()
	req := model.JobRequest{URL: "https://example.com/guides/indoor-herb-garden", Mode: model.JobModeGenerate}
	_, err := store.Create("job-2", "", req.Mode, req.URL)
	require.NoError(t, err)
	require.NoError(t, store.Advance("job-2", model.StageUpdate{State: model.JobStateDrafting, StepID: model.StageDrafting, Progress: 40}))

	task, err := service.NewPipelineTask("job-2", req)
	require.NoError(t, err)
	require.NoError(t, w.ProcessTask(context.Background(), task))

	job, _ := store.Get("job-2")
	assert.Equal(t, model.JobStateDrafting, job.State)
	assert.Equal(t, 40, job.Progress)
}
