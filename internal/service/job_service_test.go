package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/jobs"
	"github.com/contentpilot/api/internal/model"
	"github.com/contentpilot/api/internal/reliability"
	"github.com/contentpilot/api/internal/scoring"
)

type stubDispatcher struct {
	mu    sync.Mutex
	calls []string
	reqs  []model.JobRequest
	err   error
}

func (d *stubDispatcher) Dispatch(_ context.Context, jobID string, req model.JobRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, jobID)
	d.reqs = append(d.reqs, req)
	return d.err
}

func newTestJobService(d Dispatcher) (*JobService, *jobs.Store) {
	logger := zap.NewNop().Sugar()
	store := jobs.NewStore(logger)
	return NewJobService(store, d, reliability.NewIdempotencyStore(), time.Minute, 0, logger), store
}

func TestStartJob(t *testing.T) {
	d := &stubDispatcher{}
	svc, store := newTestJobService(d)

	resp, replayed, err := svc.StartJob(context.Background(), &model.JobCreateRequest{
		URL: "https://example.com/blog/post", SiteID: "s1", Provider: "groq",
	}, "")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, model.JobStatusStarted, resp.Status)
	assert.Equal(t, 0, resp.Progress)
	assert.NotEmpty(t, resp.JobID)

	job, ok := store.Get(resp.JobID)
	require.True(t, ok)
	assert.Equal(t, model.JobStatePending, job.State)
	assert.Equal(t, model.JobModeGenerate, job.Mode)

	require.Len(t, d.reqs, 1)
	assert.Equal(t, "groq", d.reqs[0].Provider)
	assert.Equal(t, model.JobModeGenerate, d.reqs[0].Mode)
}

func TestStartJob_IdempotencyKey(t *testing.T) {
	d := &stubDispatcher{}
	svc, store := newTestJobService(d)
	req := &model.JobCreateRequest{URL: "https://example.com/a"}

	first, replayed, err := svc.StartJob(context.Background(), req, "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := svc.StartJob(context.Background(), req, "key-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.JobID, second.JobID)

	_, _, err = svc.StartJob(context.Background(), req, "key-2")
	require.NoError(t, err)

	assert.Len(t, d.calls, 2)
	assert.Equal(t, 2, store.Len())
}

func TestStartJob_DispatchFailureFailsJob(t *testing.T) {
	d := &stubDispatcher{err: errors.New("redis down")}
	svc, store := newTestJobService(d)

	_, _, err := svc.StartJob(context.Background(), &model.JobCreateRequest{URL: "https://example.com"}, "")
	require.Error(t, err)

	list := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, model.JobStateFailed, list[0].State)
}

func TestGetResultAndPublishCheck(t *testing.T) {
	svc, store := newTestJobService(&stubDispatcher{})

	_, err := svc.GetStatus("missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	_, err = store.Create("j", "", model.JobModeGenerate, "https://example.com")
	require.NoError(t, err)

	_, err = svc.GetResult("j")
	assert.ErrorIs(t, err, ErrJobNotComplete)
	_, err = svc.PublishCheck("j", nil)
	assert.ErrorIs(t, err, ErrJobNotComplete)

	require.NoError(t, store.Complete("j", &model.ContentResult{
		Title: "Title", WordCount: 1600, QualityScore: 70, SEOScore: 80, ReadabilityScore: 70,
		MetaDescription: "A meta description that is comfortably longer than fifty characters.",
		Headings:        []string{"a", "b", "c"}, Excerpt: "x",
	}))

	result, err := svc.GetResult("j")
	require.NoError(t, err)
	assert.Equal(t, "Title", result.Title)

	report, err := svc.PublishCheck("j", nil)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMinQualityScore, report.MinQualityScore)
	assert.False(t, report.CanPublish)

	lower := 60
	report, err = svc.PublishCheck("j", &lower)
	require.NoError(t, err)
	assert.True(t, report.CanPublish)

	zero := 0
	report, err = svc.PublishCheck("j", &zero)
	require.NoError(t, err)
	assert.Equal(t, 0, report.MinQualityScore)
	assert.True(t, report.CanPublish)
}

func TestContentService(t *testing.T) {
	svc := NewContentService(scoring.NewScorer(scoring.DefaultConfig()), nil, 0, 0)

	report := svc.Score(&model.ScoreRequest{Content: "<p>Short text.</p>"})
	assert.Equal(t, 2, report.WordCount)

	pr := svc.PublishCheck(&model.PublishCheckRequest{Record: model.PublishCandidate{Title: "T"}})
	assert.Equal(t, model.DefaultMinQualityScore, pr.MinQualityScore)
	assert.False(t, pr.CanPublish)

	zero := 0
	pr = svc.PublishCheck(&model.PublishCheckRequest{
		Record:          model.PublishCandidate{Title: "T", WordCount: 1200, QualityScore: 30},
		MinQualityScore: &zero,
	})
	assert.Equal(t, 0, pr.MinQualityScore)
	assert.True(t, pr.CanPublish)
}

func TestContentServiceCachesReports(t *testing.T) {
	cache := reliability.NewTTLCache(0)
	svc := NewContentService(scoring.NewScorer(scoring.DefaultConfig()), cache, time.Minute, 0)

	req := &model.ScoreRequest{Content: "<p>Cached words here.</p>", TargetEntities: []string{"words"}}
	first := svc.Score(req)
	assert.Equal(t, 1, cache.Len())

	first.Recommendations = append(first.Recommendations, "mutated")
	second := svc.Score(req)
	assert.NotContains(t, second.Recommendations, "mutated")
	assert.Equal(t, first.Overall, second.Overall)

	svc.Score(&model.ScoreRequest{Content: "<p>Other words.</p>"})
	assert.Equal(t, 2, cache.Len())
}
