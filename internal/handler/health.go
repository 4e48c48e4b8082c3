package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/contentpilot/api/internal/config"
	"github.com/contentpilot/api/internal/service"
)

// HealthHandler reports liveness and which integrations are configured
type HealthHandler struct {
	cfg      *config.Config
	jobs     *service.JobService
	storage  bool
	breakers func(provider string) string
}

// NewHealthHandler creates the handler. breakers may be nil.
func NewHealthHandler(cfg *config.Config, jobs *service.JobService, storage bool, breakers func(string) string) *HealthHandler {
	return &HealthHandler{cfg: cfg, jobs: jobs, storage: storage, breakers: breakers}
}

// Root handles GET /
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"timestamp": time.Now().Unix(),
	})
}

// Health handles GET /health
// @Summary      Health check
// @Tags         System
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	providers := fiber.Map{}
	for _, id := range config.ProviderIDs {
		entry := fiber.Map{"configured": h.cfg.Configured(id)}
		if h.breakers != nil {
			entry["breaker"] = h.breakers(id)
		}
		providers[id] = entry
	}

	return c.JSON(fiber.Map{
		"status":          "ok",
		"defaultProvider": h.cfg.Generation.Provider,
		"providers":       providers,
		"jobs":            h.jobs.Count(),
		"services": fiber.Map{
			"r2":         h.storage,
			"auth":       h.cfg.JWT.Secret != "",
			"dispatcher": h.cfg.Pipeline.Dispatcher,
			"rateLimit":  h.cfg.RateLimit.Backend,
		},
	})
}
