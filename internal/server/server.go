// Package server wires configuration into the running API: stores,
// generation router, pipeline, dispatcher, HTTP routes and background
// workers.
package server

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/client"
	"github.com/contentpilot/api/internal/config"
	"github.com/contentpilot/api/internal/generation"
	"github.com/contentpilot/api/internal/handler"
	"github.com/contentpilot/api/internal/jobs"
	"github.com/contentpilot/api/internal/middleware"
	"github.com/contentpilot/api/internal/pipeline"
	"github.com/contentpilot/api/internal/reliability"
	"github.com/contentpilot/api/internal/scoring"
	"github.com/contentpilot/api/internal/service"
	"github.com/contentpilot/api/internal/worker"
	ws "github.com/contentpilot/api/internal/websocket"
	"github.com/contentpilot/api/pkg/response"
)

const (
	DispatcherGoroutine = "goroutine"
	DispatcherAsynq     = "asynq"

	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// App holds the HTTP app and the long-lived components behind it
type App struct {
	Fiber      *fiber.App
	Store      *jobs.Store
	Router     *generation.Router
	Executor   *pipeline.Executor
	JobService *service.JobService
	Hub        *ws.Hub

	cfg         *config.Config
	logger      *zap.SugaredLogger
	janitor     *reliability.Janitor
	redisClient *redis.Client
	asynqClient *asynq.Client
	asynqServer *asynq.Server
	asynqMux    *asynq.ServeMux
	cancel      context.CancelFunc
}

// New builds every component from cfg. Redis is only contacted when the
// asynq dispatcher or the Redis rate limiter is selected.
func New(cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	useAsynq := cfg.Pipeline.Dispatcher == DispatcherAsynq
	useRedisLimit := cfg.RateLimit.Backend == RateLimitRedis
	if cfg.Pipeline.Dispatcher != "" && cfg.Pipeline.Dispatcher != DispatcherGoroutine && !useAsynq {
		return nil, errors.Newf("unknown pipeline dispatcher %q", cfg.Pipeline.Dispatcher)
	}

	if useAsynq || useRedisLimit {
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnw("Redis not available", "addr", cfg.Redis.Addr, "error", err)
		}
		cancel()
	}

	// Stores
	a.Store = jobs.NewStore(logger.Named("jobs"))
	idempotency := reliability.NewIdempotencyStore()
	scoreCache := reliability.NewTTLCache(reliability.DefaultCacheCapacity)
	sweepers := map[string]reliability.Sweeper{
		"idempotency": idempotency,
		"scoreCache":  scoreCache,
	}

	var limiter reliability.Limiter
	if useRedisLimit {
		limiter = reliability.NewRedisLimiter(a.redisClient, "ratelimit")
	} else {
		memory := reliability.NewFixedWindowLimiter()
		sweepers["rateLimit"] = memory
		limiter = memory
	}
	a.janitor = reliability.NewJanitor(sweepInterval(cfg), logger.Named("janitor"), sweepers)

	// Generation
	a.Router = generation.NewRouter(
		logger.Named("generation"),
		generation.OptionsFromConfig(cfg.Generation),
		generation.AdaptersFromConfig(cfg)...,
	)
	scorer := scoring.NewScorer(ScoringConfig(cfg.Scoring))

	// Object storage is optional; the rendered article is then kept in memory only
	var storage client.StorageClient
	var signedURLExpiry time.Duration
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			logger.Warnw("R2 client not initialized", "error", err)
		} else {
			storage = r2Client
			if cfg.R2.PublicURL == "" {
				signedURLExpiry = cfg.R2.SignedURLTTL
				logger.Infow("R2 public URL not set, publishing presigned article links", "ttl", signedURLExpiry)
			}
		}
	} else {
		logger.Info("R2 storage not configured, rendered articles are not uploaded")
	}

	a.Executor = pipeline.NewExecutor(a.Store, a.Router, scorer, storage, idempotency, pipeline.Options{
		DefaultProvider: cfg.Generation.Provider,
		Providers:       cfg.Providers,
		StageDelay:      cfg.Pipeline.StageDelay,
		IdempotencyTTL:  cfg.Pipeline.IdempotencyTTL,
		SignedURLExpiry: signedURLExpiry,
	}, logger.Named("pipeline"))

	// Dispatch
	var dispatcher service.Dispatcher
	if useAsynq {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		a.asynqClient = asynq.NewClient(redisOpt)
		a.asynqServer = asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				service.QueuePipeline: 1,
			},
			LogLevel: asynqLogLevel(cfg.Server.LogLevel),
		})
		a.asynqMux = asynq.NewServeMux()
		worker.NewPipelineWorker(a.Executor, a.Store, logger.Named("worker")).Register(a.asynqMux)
		dispatcher = service.NewAsynqDispatcher(a.asynqClient)
	} else {
		dispatcher = service.NewGoroutineDispatcher(a.Executor, logger.Named("dispatcher"))
	}

	a.JobService = service.NewJobService(a.Store, dispatcher, idempotency, cfg.Pipeline.IdempotencyTTL, cfg.Scoring.MinQualityScore, logger.Named("jobs"))
	contentService := service.NewContentService(scorer, scoreCache, cfg.Scoring.CacheTTL, cfg.Scoring.MinQualityScore)
	a.Hub = ws.NewHub(a.Store, logger.Named("ws"))

	// HTTP
	validate := validator.New()
	jobHandler := handler.NewJobHandler(a.JobService, validate)
	contentHandler := handler.NewContentHandler(contentService, validate)
	authHandler := handler.NewAuthHandler(cfg.JWT.Secret)
	healthHandler := handler.NewHealthHandler(cfg, a.JobService, storage != nil, func(id string) string {
		return a.Router.BreakerState(id).String()
	})
	rateLimiter := middleware.NewRateLimiter(limiter, logger.Named("ratelimit"))

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
	}
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization," + middleware.HeaderIdempotencyKey,
	}))

	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.Health)
	if cfg.JWT.Secret != "" {
		app.Get("/auth/verify", authHandler.Verify)
	}

	// API routes, authenticated when a JWT secret is configured
	var api fiber.Router
	if cfg.JWT.Secret != "" {
		api = app.Group("/api", middleware.NewAuthMiddleware(cfg.JWT.Secret).Authenticate())
	} else {
		logger.Warn("JWT secret not set, /api routes are unauthenticated")
		api = app.Group("/api")
	}

	jobsGroup := api.Group("/jobs")
	jobsGroup.Post("/", rateLimiter.JobsLimit(cfg.RateLimit.JobsPerMinute), middleware.IdempotencyKey(), jobHandler.Create)
	jobsGroup.Get("/", jobHandler.List)
	jobsGroup.Get("/:jobId", jobHandler.Status)
	jobsGroup.Get("/:jobId/result", jobHandler.Result)
	jobsGroup.Get("/:jobId/publish-check", jobHandler.PublishCheck)

	content := api.Group("/content", rateLimiter.ScoreLimit(cfg.RateLimit.ScorePerMin))
	content.Post("/score", contentHandler.Score)
	content.Post("/publish-check", contentHandler.PublishCheck)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		a.Hub.HandleConnection(c, c.Params("jobId"))
	}))

	a.Fiber = app
	return a, nil
}

// Start launches the hub, the janitor and, in asynq mode, the worker server
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.Hub.Run()
	go a.janitor.Run(ctx)

	if a.asynqServer != nil {
		go func() {
			if err := a.asynqServer.Run(a.asynqMux); err != nil {
				a.logger.Errorw("Asynq worker error", "error", err)
			}
		}()
	}
}

// Shutdown stops the HTTP server and every background component
func (a *App) Shutdown(timeout time.Duration) error {
	err := a.Fiber.ShutdownWithTimeout(timeout)

	if a.cancel != nil {
		a.cancel()
	}
	a.Hub.Stop()
	if a.asynqServer != nil {
		a.asynqServer.Shutdown()
	}
	if a.asynqClient != nil {
		if cerr := a.asynqClient.Close(); cerr != nil {
			a.logger.Warnw("Failed to close asynq client", "error", cerr)
		}
	}
	if a.redisClient != nil {
		if cerr := a.redisClient.Close(); cerr != nil {
			a.logger.Warnw("Failed to close redis client", "error", cerr)
		}
	}
	return err
}

// ScoringConfig maps configured weights and thresholds onto the scorer.
// Unset weights and zero thresholds keep the defaults; a weight of 0 is kept.
func ScoringConfig(c config.ScoringConfig) scoring.Config {
	out := scoring.DefaultConfig()
	setFloat := func(dst *float64, v *float64) {
		if v != nil && *v >= 0 {
			*dst = *v
		}
	}
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	setFloat(&out.Weights.Readability, c.WeightReadability)
	setFloat(&out.Weights.Completeness, c.WeightCompleteness)
	setFloat(&out.Weights.EntityCoverage, c.WeightEntityCoverage)
	setFloat(&out.Weights.Uniqueness, c.WeightUniqueness)
	setFloat(&out.Weights.Engagement, c.WeightEngagement)
	setInt(&out.Thresholds.Readability, c.ThresholdReadability)
	setInt(&out.Thresholds.Completeness, c.ThresholdCompleteness)
	setInt(&out.Thresholds.EntityCoverage, c.ThresholdEntityCoverage)
	setInt(&out.Thresholds.Engagement, c.ThresholdEngagement)
	setInt(&out.Thresholds.RecommendedWords, c.RecommendedWords)
	return out
}

func sweepInterval(cfg *config.Config) time.Duration {
	if cfg.Pipeline.SweepInterval > 0 {
		return cfg.Pipeline.SweepInterval
	}
	return time.Minute
}

func asynqLogLevel(level string) asynq.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return asynq.DebugLevel
	case "warn":
		return asynq.WarnLevel
	case "error":
		return asynq.ErrorLevel
	default:
		return asynq.InfoLevel
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	switch code {
	case fiber.StatusNotFound:
		return response.NotFound(c, message)
	default:
		return response.Error(c, code, response.CodeServiceError, message, nil)
	}
}
