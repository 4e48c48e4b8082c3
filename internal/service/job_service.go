package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/jobs"
	"github.com/contentpilot/api/internal/model"
	"github.com/contentpilot/api/internal/reliability"
	"github.com/contentpilot/api/internal/scoring"
)

// ErrJobNotComplete is returned when a result is requested before the job completed
var ErrJobNotComplete = errors.New("job not completed")

// JobService handles job creation, dispatch and queries
type JobService struct {
	store           *jobs.Store
	dispatcher      Dispatcher
	idempotency     *reliability.IdempotencyStore
	idempotencyTTL  time.Duration
	minQualityScore int
	logger          *zap.SugaredLogger
}

func NewJobService(
	store *jobs.Store,
	dispatcher Dispatcher,
	idempotency *reliability.IdempotencyStore,
	idempotencyTTL time.Duration,
	minQualityScore int,
	logger *zap.SugaredLogger,
) *JobService {
	if minQualityScore <= 0 {
		minQualityScore = model.DefaultMinQualityScore
	}
	return &JobService{
		store:           store,
		dispatcher:      dispatcher,
		idempotency:     idempotency,
		idempotencyTTL:  idempotencyTTL,
		minQualityScore: minQualityScore,
		logger:          logger,
	}
}

// StartJob creates and dispatches a job. Requests carrying the same
// idempotency key within the TTL get the first response back and replayed
// reports whether that happened.
func (s *JobService) StartJob(ctx context.Context, req *model.JobCreateRequest, idempotencyKey string) (resp *model.JobCreateResponse, replayed bool, err error) {
	if idempotencyKey == "" {
		resp, err = s.startJob(ctx, req)
		return resp, false, err
	}
	return reliability.WithIdempotency(s.idempotency, "job:"+idempotencyKey, s.idempotencyTTL, func() (*model.JobCreateResponse, error) {
		return s.startJob(ctx, req)
	})
}

func (s *JobService) startJob(ctx context.Context, req *model.JobCreateRequest) (*model.JobCreateResponse, error) {
	jobID := uuid.New().String()
	mode := req.Mode
	if mode == "" {
		mode = model.JobModeGenerate
	}

	job, err := s.store.Create(jobID, req.SiteID, mode, req.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create job")
	}

	payload := model.JobRequest{
		URL:       req.URL,
		SiteID:    req.SiteID,
		Mode:      mode,
		PostTitle: req.PostTitle,
		Provider:  req.Provider,
		Model:     req.Model,
	}
	if err := s.dispatcher.Dispatch(ctx, jobID, payload); err != nil {
		_ = s.store.Fail(jobID, "dispatch failed: "+err.Error())
		return nil, errors.Wrap(err, "failed to dispatch job")
	}

	s.logger.Infow("Job started", "jobId", jobID, "url", req.URL, "mode", mode, "provider", req.Provider)

	return &model.JobCreateResponse{
		JobID:     jobID,
		Status:    model.JobStatusStarted,
		Progress:  0,
		CreatedAt: job.CreatedAt,
	}, nil
}

// GetStatus returns the job snapshot
func (s *JobService) GetStatus(jobID string) (*model.Job, error) {
	job, ok := s.store.Get(jobID)
	if !ok {
		return nil, errors.Wrapf(jobs.ErrJobNotFound, "job %s", jobID)
	}
	return &job, nil
}

// GetResult returns the content of a completed job
func (s *JobService) GetResult(jobID string) (*model.ContentResult, error) {
	job, err := s.GetStatus(jobID)
	if err != nil {
		return nil, err
	}
	if job.State != model.JobStateComplete || job.Result == nil {
		return nil, errors.Wrapf(ErrJobNotComplete, "job %s is %s", jobID, job.State)
	}
	return job.Result, nil
}

// PublishCheck runs the publish-readiness checks against a completed job.
// A nil minQualityScore uses the configured default.
func (s *JobService) PublishCheck(jobID string, minQualityScore *int) (*model.PublishReport, error) {
	result, err := s.GetResult(jobID)
	if err != nil {
		return nil, err
	}
	threshold := s.minQualityScore
	if minQualityScore != nil {
		threshold = *minQualityScore
	}
	report := scoring.CheckPublishReadiness(model.CandidateFromResult(result), &threshold)
	return &report, nil
}

// List returns all jobs, newest first
func (s *JobService) List() *model.JobListResponse {
	list := s.store.List()
	return &model.JobListResponse{Jobs: list, Total: len(list)}
}

// Count returns the number of tracked jobs
func (s *JobService) Count() int {
	return s.store.Len()
}
