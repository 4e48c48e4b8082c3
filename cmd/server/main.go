package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contentpilot/api/internal/config"
	"github.com/contentpilot/api/internal/logger"
	"github.com/contentpilot/api/internal/server"
)

// @title          ContentPilot API
// @version        1.0
// @description    Backend API for ContentPilot: staged AI article generation with live progress.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sugar, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = sugar.Sync() }()

	app, err := server.New(cfg, sugar)
	if err != nil {
		sugar.Fatalw("Failed to build server", "error", err)
	}
	app.Start()

	sugar.Infow("Configuration loaded",
		"env", cfg.Server.Env,
		"provider", cfg.Generation.Provider,
		"dispatcher", cfg.Pipeline.Dispatcher,
		"rateLimit", cfg.RateLimit.Backend,
	)
	for _, id := range config.ProviderIDs {
		if !cfg.Configured(id) {
			sugar.Infow("Provider not configured, jobs selecting it use fallback content", "provider", id)
		}
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		sugar.Info("Shutting down server...")
		if err := app.Shutdown(10 * time.Second); err != nil {
			sugar.Errorw("Server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	sugar.Infow("Server starting", "addr", addr)
	if err := app.Fiber.Listen(addr); err != nil {
		sugar.Fatalw("Server error", "error", err)
	}
}
