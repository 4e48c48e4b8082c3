package generation

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/contentpilot/api/internal/client"
	"github.com/contentpilot/api/internal/config"
	"github.com/contentpilot/api/internal/model"
)

// GenerationAdapter turns a topic into a ContentResult using one provider
type GenerationAdapter interface {
	Provider() string
	Generate(ctx context.Context, pc ProviderConfig, topic string) (model.ContentResult, error)
}

// VendorAdapter prompts a remote chat model and normalizes its article
type VendorAdapter struct {
	provider     string
	completer    client.Completer
	defaultModel string
	maxTokens    int
	temperature  float64
	now          func() time.Time
}

// NewVendorAdapter wraps a vendor client as a GenerationAdapter
func NewVendorAdapter(provider string, completer client.Completer, defaultModel string, maxTokens int, temperature float64) *VendorAdapter {
	return &VendorAdapter{
		provider:     provider,
		completer:    completer,
		defaultModel: defaultModel,
		maxTokens:    maxTokens,
		temperature:  temperature,
		now:          time.Now,
	}
}

func (a *VendorAdapter) Provider() string { return a.provider }

// Generate runs one completion and parses the article out of it
func (a *VendorAdapter) Generate(ctx context.Context, pc ProviderConfig, topic string) (model.ContentResult, error) {
	modelName := pc.Model
	if modelName == "" {
		modelName = a.defaultModel
	}

	raw, err := a.completer.Complete(ctx, client.CompletionRequest{
		APIKey:      pc.APIKey,
		Model:       modelName,
		System:      systemPrompt,
		Prompt:      buildPrompt(topic),
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return model.ContentResult{}, errors.Wrapf(err, "%s generation failed", a.provider)
	}

	art, err := parseArticle(raw)
	if err != nil {
		return model.ContentResult{}, errors.Wrapf(err, "%s response", a.provider)
	}
	if art.Title == "" {
		art.Title = topic
	}
	return Normalize(art, a.provider, a.now()), nil
}

// AdaptersFromConfig builds one VendorAdapter per configured provider endpoint
func AdaptersFromConfig(cfg *config.Config) []GenerationAdapter {
	gen := cfg.Generation
	build := func(id string, c client.Completer) GenerationAdapter {
		return NewVendorAdapter(id, c, cfg.Providers[id].Model, gen.MaxTokens, gen.Temperature)
	}

	gemini := cfg.Providers[config.ProviderGemini]
	openai := cfg.Providers[config.ProviderOpenAI]
	anthropic := cfg.Providers[config.ProviderAnthropic]
	groq := cfg.Providers[config.ProviderGroq]
	openrouter := cfg.Providers[config.ProviderOpenRouter]

	return []GenerationAdapter{
		build(config.ProviderGemini, client.NewGeminiClient(&gemini, gen.Timeout)),
		build(config.ProviderOpenAI, client.NewOpenAIClient(&openai, gen.Timeout)),
		build(config.ProviderAnthropic, client.NewAnthropicClient(&anthropic, gen.Timeout)),
		build(config.ProviderGroq, client.NewGroqClient(&groq, gen.Timeout)),
		build(config.ProviderOpenRouter, client.NewOpenRouterClient(&openrouter, gen.Timeout, cfg.Server.AppURL, "ContentPilot")),
	}
}
