package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

// Provider ids
const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGroq       = "groq"
	ProviderOpenRouter = "openrouter"
)

// ProviderIDs lists every vendor provider id
var ProviderIDs = []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderGroq, ProviderOpenRouter}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Generation GenerationConfig
	Providers  map[string]ProviderConfig
	Pipeline   PipelineConfig
	Scoring    ScoringConfig
	R2         R2Config
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
	AppURL   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	Backend       string // "memory" or "redis"
	JobsPerMinute int
	ScorePerMin   int
}

// GenerationConfig selects the default provider and the call envelope
type GenerationConfig struct {
	Provider         string
	Timeout          time.Duration
	MaxRetries       int
	RetryInitial     time.Duration
	RetryMax         time.Duration
	MaxTokens        int
	Temperature      float64
	RequestsPerMin   int
	BreakerFailures  int
	BreakerOpenDelay time.Duration
}

// ProviderConfig holds one vendor's credentials and endpoint
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type PipelineConfig struct {
	Dispatcher     string // "goroutine" or "asynq"
	StageDelay     time.Duration
	IdempotencyTTL time.Duration
	SweepInterval  time.Duration
}

// ScoringConfig overrides the scoring weights and thresholds. A nil weight
// keeps the scorer default; 0 switches the dimension off.
type ScoringConfig struct {
	WeightReadability       *float64
	WeightCompleteness      *float64
	WeightEntityCoverage    *float64
	WeightUniqueness        *float64
	WeightEngagement        *float64
	ThresholdReadability    int
	ThresholdCompleteness   int
	ThresholdEntityCoverage int
	ThresholdEngagement     int
	RecommendedWords        int
	MinQualityScore         int
	CacheTTL                time.Duration
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string

	// SignedURLTTL is the lifetime of article links when the bucket has no public URL
	SignedURLTTL time.Duration
}

// Configured reports whether the provider has an API key
func (c *Config) Configured(provider string) bool {
	p, ok := c.Providers[provider]
	return ok && p.APIKey != ""
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("GEMINI_API_KEY")
	readSecret("OPENAI_API_KEY")
	readSecret("ANTHROPIC_API_KEY")
	readSecret("GROQ_API_KEY")
	readSecret("OPENROUTER_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables
	v.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.app_url", "APP_URL")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("ratelimit.backend", "RATELIMIT_BACKEND")
	_ = v.BindEnv("generation.provider", "GENERATION_PROVIDER")
	_ = v.BindEnv("generation.timeout", "GENERATION_TIMEOUT")
	_ = v.BindEnv("pipeline.dispatcher", "PIPELINE_DISPATCHER")
	_ = v.BindEnv("pipeline.stage_delay", "PIPELINE_STAGE_DELAY")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	for _, p := range ProviderIDs {
		upper := strings.ToUpper(p)
		_ = v.BindEnv("providers."+p+".api_key", upper+"_API_KEY")
		_ = v.BindEnv("providers."+p+".base_url", upper+"_BASE_URL")
		_ = v.BindEnv("providers."+p+".model", upper+"_MODEL")
	}

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.jobs_per_min", 10)
	v.SetDefault("ratelimit.score_per_min", 60)

	// Generation defaults
	v.SetDefault("generation.provider", ProviderGemini)
	v.SetDefault("generation.timeout", 90*time.Second)
	v.SetDefault("generation.max_retries", 3)
	v.SetDefault("generation.retry_initial", time.Second)
	v.SetDefault("generation.retry_max", 30*time.Second)
	v.SetDefault("generation.max_tokens", 8192)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.requests_per_min", 60)
	v.SetDefault("generation.breaker_failures", 5)
	v.SetDefault("generation.breaker_open_delay", 30*time.Second)

	// Provider defaults
	v.SetDefault("providers.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("providers.gemini.model", "gemini-1.5-flash")
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.anthropic.base_url", "https://api.anthropic.com/v1")
	v.SetDefault("providers.anthropic.model", "claude-3-5-sonnet-latest")
	v.SetDefault("providers.groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("providers.groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("providers.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("providers.openrouter.model", "openai/gpt-4o-mini")

	// Pipeline defaults
	v.SetDefault("pipeline.dispatcher", "goroutine")
	v.SetDefault("pipeline.stage_delay", time.Duration(0))
	v.SetDefault("pipeline.idempotency_ttl", 10*time.Minute)
	v.SetDefault("pipeline.sweep_interval", time.Minute)

	// Scoring defaults
	v.SetDefault("scoring.weight_readability", 0.25)
	v.SetDefault("scoring.weight_completeness", 0.30)
	v.SetDefault("scoring.weight_entity_coverage", 0.20)
	v.SetDefault("scoring.weight_uniqueness", 0.15)
	v.SetDefault("scoring.weight_engagement", 0.10)
	v.SetDefault("scoring.threshold_readability", 70)
	v.SetDefault("scoring.threshold_completeness", 75)
	v.SetDefault("scoring.threshold_entity_coverage", 80)
	v.SetDefault("scoring.threshold_engagement", 75)
	v.SetDefault("scoring.recommended_words", 2000)
	v.SetDefault("scoring.min_quality_score", 75)
	v.SetDefault("scoring.cache_ttl", 5*time.Minute)

	v.SetDefault("r2.signed_url_ttl", 24*time.Hour)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("server.port"),
			Env:      v.GetString("server.env"),
			LogLevel: v.GetString("server.log_level"),
			AppURL:   v.GetString("server.app_url"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			Backend:       v.GetString("ratelimit.backend"),
			JobsPerMinute: v.GetInt("ratelimit.jobs_per_min"),
			ScorePerMin:   v.GetInt("ratelimit.score_per_min"),
		},
		Generation: GenerationConfig{
			Provider:         strings.ToLower(v.GetString("generation.provider")),
			Timeout:          v.GetDuration("generation.timeout"),
			MaxRetries:       v.GetInt("generation.max_retries"),
			RetryInitial:     v.GetDuration("generation.retry_initial"),
			RetryMax:         v.GetDuration("generation.retry_max"),
			MaxTokens:        v.GetInt("generation.max_tokens"),
			Temperature:      v.GetFloat64("generation.temperature"),
			RequestsPerMin:   v.GetInt("generation.requests_per_min"),
			BreakerFailures:  v.GetInt("generation.breaker_failures"),
			BreakerOpenDelay: v.GetDuration("generation.breaker_open_delay"),
		},
		Providers: make(map[string]ProviderConfig, len(ProviderIDs)),
		Pipeline: PipelineConfig{
			Dispatcher:     strings.ToLower(v.GetString("pipeline.dispatcher")),
			StageDelay:     v.GetDuration("pipeline.stage_delay"),
			IdempotencyTTL: v.GetDuration("pipeline.idempotency_ttl"),
			SweepInterval:  v.GetDuration("pipeline.sweep_interval"),
		},
		Scoring: ScoringConfig{
			WeightReadability:       floatSetting(v, "scoring.weight_readability"),
			WeightCompleteness:      floatSetting(v, "scoring.weight_completeness"),
			WeightEntityCoverage:    floatSetting(v, "scoring.weight_entity_coverage"),
			WeightUniqueness:        floatSetting(v, "scoring.weight_uniqueness"),
			WeightEngagement:        floatSetting(v, "scoring.weight_engagement"),
			ThresholdReadability:    v.GetInt("scoring.threshold_readability"),
			ThresholdCompleteness:   v.GetInt("scoring.threshold_completeness"),
			ThresholdEntityCoverage: v.GetInt("scoring.threshold_entity_coverage"),
			ThresholdEngagement:     v.GetInt("scoring.threshold_engagement"),
			RecommendedWords:        v.GetInt("scoring.recommended_words"),
			MinQualityScore:         v.GetInt("scoring.min_quality_score"),
			CacheTTL:                v.GetDuration("scoring.cache_ttl"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
			SignedURLTTL:    v.GetDuration("r2.signed_url_ttl"),
		},
	}

	for _, p := range ProviderIDs {
		cfg.Providers[p] = ProviderConfig{
			APIKey:  v.GetString("providers." + p + ".api_key"),
			BaseURL: strings.TrimRight(v.GetString("providers."+p+".base_url"), "/"),
			Model:   v.GetString("providers." + p + ".model"),
		}
	}

	return cfg, nil
}

func floatSetting(v *viper.Viper, key string) *float64 {
	if !v.IsSet(key) {
		return nil
	}
	f := v.GetFloat64(key)
	return &f
}
