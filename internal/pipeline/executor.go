// Package pipeline runs a job through the six content stages.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/client"
	"github.com/contentpilot/api/internal/config"
	"github.com/contentpilot/api/internal/generation"
	"github.com/contentpilot/api/internal/jobs"
	"github.com/contentpilot/api/internal/model"
	"github.com/contentpilot/api/internal/reliability"
	"github.com/contentpilot/api/internal/scoring"
)

// Generator produces content for a topic and never fails
type Generator interface {
	Generate(ctx context.Context, pc generation.ProviderConfig, topic string) model.ContentResult
}

// Options configures an Executor
type Options struct {
	DefaultProvider string
	Providers       map[string]config.ProviderConfig
	StageDelay      time.Duration
	IdempotencyTTL  time.Duration

	// SignedURLExpiry, when set, publishes a presigned link instead of the
	// bucket's public URL
	SignedURLExpiry time.Duration
}

// Executor drives jobs through the stage sequence
type Executor struct {
	store       *jobs.Store
	generator   Generator
	scorer      *scoring.Scorer
	storage     client.StorageClient
	idempotency *reliability.IdempotencyStore
	opts        Options
	logger      *zap.SugaredLogger
}

// NewExecutor creates an executor. storage may be nil, in which case the
// rendered document is not uploaded.
func NewExecutor(
	store *jobs.Store,
	generator Generator,
	scorer *scoring.Scorer,
	storage client.StorageClient,
	idempotency *reliability.IdempotencyStore,
	opts Options,
	logger *zap.SugaredLogger,
) *Executor {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 10 * time.Minute
	}
	return &Executor{
		store:       store,
		generator:   generator,
		scorer:      scorer,
		storage:     storage,
		idempotency: idempotency,
		opts:        opts,
		logger:      logger,
	}
}

// Run executes every stage for jobID and completes the job. Any error
// fails the job; the error is also returned for the caller's logs.
func (e *Executor) Run(ctx context.Context, jobID string, req model.JobRequest) (err error) {
	log := e.logger.With("jobId", jobID)
	var uploadedKey string

	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf("pipeline panic: %v", rec)
		}
		if err != nil {
			if errors.Is(err, jobs.ErrJobTerminal) {
				log.Infow("Job finished elsewhere, stopping")
				err = nil
				return
			}
			if errors.Is(err, jobs.ErrInvalidTransition) {
				// another run owns this job and is further along
				log.Infow("Job already in progress elsewhere, stopping", "error", err)
				err = nil
				return
			}
			log.Errorw("Pipeline failed", "error", err)
			if ferr := e.store.Fail(jobID, err.Error()); ferr != nil {
				log.Warnw("Failed to mark job failed", "error", ferr)
			}
			if uploadedKey != "" {
				e.removeUpload(jobID, uploadedKey)
			}
		}
	}()

	log.Infow("Starting pipeline", "url", req.URL, "mode", req.Mode)

	// Stage 1: briefing
	if err := e.advance(ctx, jobID, model.JobStateBriefing, model.StageBriefing, 5, "Analyzing target URL...", nil); err != nil {
		return err
	}
	topic := DeriveTopic(req)
	brief := BuildBrief(topic, req)
	if err := e.advance(ctx, jobID, model.JobStateBriefing, model.StageBriefing, 15, "Content brief ready", brief); err != nil {
		return err
	}

	// Stage 2: outlining
	if err := e.advance(ctx, jobID, model.JobStateOutlining, model.StageOutlining, 20, "Planning headings...", nil); err != nil {
		return err
	}
	outline := BuildOutline(brief)
	if err := e.advance(ctx, jobID, model.JobStateOutlining, model.StageOutlining, 30, "Outline ready", outline); err != nil {
		return err
	}

	// Stage 3: drafting
	pc := e.providerConfig(req)
	if err := e.advance(ctx, jobID, model.JobStateDrafting, model.StageDrafting, 35, fmt.Sprintf("Generating draft with %s...", pc.Provider), nil); err != nil {
		return err
	}
	result := e.generator.Generate(ctx, pc, topic)
	if err := e.store.SetResult(jobID, &result); err != nil {
		return err
	}
	draftMsg := fmt.Sprintf("Draft ready (%d words)", result.WordCount)
	if result.Fallback {
		draftMsg = "Provider unavailable, using fallback content"
	}
	if err := e.advance(ctx, jobID, model.JobStateDrafting, model.StageDrafting, 60, draftMsg, map[string]any{
		"provider":  result.Provider,
		"fallback":  result.Fallback,
		"wordCount": result.WordCount,
	}); err != nil {
		return err
	}

	// Stage 4: enriching
	if err := e.advance(ctx, jobID, model.JobStateEnriching, model.StageEnriching, 65, "Adding summary and FAQ blocks...", nil); err != nil {
		return err
	}
	added := Enrich(&result, brief)
	generation.Reindex(&result)
	if err := e.advance(ctx, jobID, model.JobStateEnriching, model.StageEnriching, 75, "Content enriched", map[string]any{
		"blocksAdded": added,
		"wordCount":   result.WordCount,
	}); err != nil {
		return err
	}

	// Stage 5: quality check
	if err := e.advance(ctx, jobID, model.JobStateQualityCheck, model.StageQualityCheck, 80, "Scoring content...", nil); err != nil {
		return err
	}
	report := e.scorer.Score(result.Content, brief.PAAQuestions, brief.TargetEntities)
	result.QualityScore = report.Overall
	result.ReadabilityScore = report.Readability
	if err := e.store.SetMetadata(jobID, "score", report); err != nil {
		return err
	}
	if err := e.advance(ctx, jobID, model.JobStateQualityCheck, model.StageQualityCheck, 88, fmt.Sprintf("Quality score %d", report.Overall), report); err != nil {
		return err
	}

	// Stage 6: rendering
	if err := e.advance(ctx, jobID, model.JobStateRendering, model.StageRendering, 90, "Rendering article...", nil); err != nil {
		return err
	}
	doc, err := RenderDocument(&result)
	if err != nil {
		return err
	}
	renderData := map[string]any{"bytes": len(doc)}
	if e.storage != nil {
		siteID := req.SiteID
		if siteID == "" {
			siteID = "default"
		}
		key, articleURL, err := e.upload(ctx, jobID, siteID, doc)
		if key != "" {
			uploadedKey = key
		}
		if err != nil {
			// the article stays available through the job result
			log.Warnw("Article upload failed", "error", err)
			renderData["uploadError"] = err.Error()
		} else {
			renderData["articleUrl"] = articleURL
			if err := e.store.SetMetadata(jobID, "articleUrl", articleURL); err != nil {
				return err
			}
		}
	}
	if err := e.advance(ctx, jobID, model.JobStateRendering, model.StageRendering, 98, "Article rendered", renderData); err != nil {
		return err
	}

	if err := e.store.Complete(jobID, &result); err != nil {
		return err
	}
	log.Infow("Pipeline completed", "provider", result.Provider, "fallback", result.Fallback,
		"wordCount", result.WordCount, "qualityScore", result.QualityScore)
	return nil
}

// upload stores the document once per job, even across redelivered runs.
// key is set whenever the object exists in the bucket, even if linking it failed.
func (e *Executor) upload(ctx context.Context, jobID, siteID, doc string) (key, url string, err error) {
	objectKey := fmt.Sprintf("articles/%s/%s.html", siteID, jobID)
	url, hit, err := reliability.WithIdempotency(e.idempotency, uploadIdempotencyKey(jobID), e.opts.IdempotencyTTL, func() (string, error) {
		return e.storage.Upload(ctx, objectKey, strings.NewReader(doc), "text/html; charset=utf-8")
	})
	if err != nil {
		return "", "", err
	}
	if hit {
		e.logger.Debugw("Reusing previous article upload", "jobId", jobID, "key", objectKey)
	}

	if e.opts.SignedURLExpiry > 0 {
		url, err = e.storage.GetSignedURL(ctx, objectKey, e.opts.SignedURLExpiry)
		if err != nil {
			return objectKey, "", err
		}
	}
	return objectKey, url, nil
}

// removeUpload deletes the article of a job that failed after rendering
func (e *Executor) removeUpload(jobID, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.storage.Delete(ctx, key); err != nil {
		e.logger.Warnw("Failed to remove article of failed job", "jobId", jobID, "key", key, "error", err)
		return
	}
	e.idempotency.Forget(uploadIdempotencyKey(jobID))
	e.logger.Infow("Removed article of failed job", "jobId", jobID, "key", key)
}

func uploadIdempotencyKey(jobID string) string {
	return "render:" + jobID
}

func (e *Executor) providerConfig(req model.JobRequest) generation.ProviderConfig {
	id := strings.ToLower(strings.TrimSpace(req.Provider))
	if id == "" {
		id = e.opts.DefaultProvider
	}
	pc := generation.ProviderConfig{Provider: id, Model: req.Model}
	if p, ok := e.opts.Providers[id]; ok {
		pc.APIKey = p.APIKey
	}
	return pc
}

func (e *Executor) advance(ctx context.Context, jobID string, state model.JobState, step string, progress int, message string, data any) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "pipeline cancelled")
	}
	if err := e.store.Advance(jobID, model.StageUpdate{
		State:    state,
		StepID:   step,
		Progress: progress,
		Message:  message,
		Data:     data,
	}); err != nil {
		return err
	}
	return e.pause(ctx)
}

func (e *Executor) pause(ctx context.Context) error {
	if e.opts.StageDelay <= 0 {
		return nil
	}
	t := time.NewTimer(e.opts.StageDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "pipeline cancelled")
	case <-t.C:
		return nil
	}
}
