package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/contentpilot/api/internal/model"
	"github.com/contentpilot/api/internal/reliability"
	"github.com/contentpilot/api/internal/scoring"
)

// ContentService scores ad hoc content and checks publish readiness
type ContentService struct {
	scorer          *scoring.Scorer
	cache           *reliability.TTLCache
	cacheTTL        time.Duration
	minQualityScore int
}

// NewContentService creates the service. cache may be nil to disable
// report caching.
func NewContentService(scorer *scoring.Scorer, cache *reliability.TTLCache, cacheTTL time.Duration, minQualityScore int) *ContentService {
	if minQualityScore <= 0 {
		minQualityScore = model.DefaultMinQualityScore
	}
	return &ContentService{
		scorer:          scorer,
		cache:           cache,
		cacheTTL:        cacheTTL,
		minQualityScore: minQualityScore,
	}
}

// Score rates content against the request's questions and entities.
// Identical requests within the cache TTL share one report.
func (s *ContentService) Score(req *model.ScoreRequest) model.ScoreReport {
	if s.cache == nil || s.cacheTTL <= 0 {
		return s.scorer.Score(req.Content, req.PAAQuestions, req.TargetEntities)
	}

	key := scoreCacheKey(req)
	if cached, ok := s.cache.Get(key); ok {
		if report, ok := cached.(model.ScoreReport); ok {
			return copyReport(report)
		}
	}
	report := s.scorer.Score(req.Content, req.PAAQuestions, req.TargetEntities)
	s.cache.Set(key, copyReport(report), s.cacheTTL)
	return report
}

// PublishCheck checks a caller-supplied record
func (s *ContentService) PublishCheck(req *model.PublishCheckRequest) model.PublishReport {
	threshold := s.minQualityScore
	if req.MinQualityScore != nil {
		threshold = *req.MinQualityScore
	}
	return scoring.CheckPublishReadiness(req.Record, &threshold)
}

func scoreCacheKey(req *model.ScoreRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Content))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(req.PAAQuestions, "\x1f")))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(req.TargetEntities, "\x1f")))
	return "score:" + hex.EncodeToString(h.Sum(nil))
}

func copyReport(r model.ScoreReport) model.ScoreReport {
	r.FailingAspects = append([]string{}, r.FailingAspects...)
	r.Recommendations = append([]string{}, r.Recommendations...)
	return r
}
