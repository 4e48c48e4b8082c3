package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/config"
	"github.com/contentpilot/api/internal/scoring"
)

func TestScoringConfigKeepsDefaultsForZeroValues(t *testing.T) {
	half := 0.5
	got := ScoringConfig(config.ScoringConfig{
		WeightReadability:   &half,
		ThresholdEngagement: 40,
		RecommendedWords:    1200,
	})

	want := scoring.DefaultConfig()
	want.Weights.Readability = 0.5
	want.Thresholds.Engagement = 40
	want.Thresholds.RecommendedWords = 1200
	assert.Equal(t, want, got)
}

func TestScoringConfigHonorsZeroWeight(t *testing.T) {
	zero := 0.0
	got := ScoringConfig(config.ScoringConfig{WeightEngagement: &zero})

	want := scoring.DefaultConfig()
	want.Weights.Engagement = 0
	assert.Equal(t, want, got)

	report := scoring.NewScorer(got).Score("Short body with a question? Yes.", nil, nil)
	full := scoring.NewScorer(scoring.DefaultConfig()).Score("Short body with a question? Yes.", nil, nil)
	assert.LessOrEqual(t, report.Overall, full.Overall)
}

func TestNewRejectsUnknownDispatcher(t *testing.T) {
	cfg := &config.Config{
		Pipeline:  config.PipelineConfig{Dispatcher: "kafka"},
		Providers: map[string]config.ProviderConfig{},
	}
	_, err := New(cfg, zap.NewNop().Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")
}

func TestNewWithoutRedis(t *testing.T) {
	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{Backend: RateLimitMemory},
		Pipeline:  config.PipelineConfig{Dispatcher: DispatcherGoroutine},
		Providers: map[string]config.ProviderConfig{},
	}
	app, err := New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Nil(t, app.redisClient)
	assert.Nil(t, app.asynqServer)
	assert.NotNil(t, app.Fiber)
	assert.Equal(t, []string{"anthropic", "gemini", "groq", "openai", "openrouter"}, app.Router.Providers())
}
