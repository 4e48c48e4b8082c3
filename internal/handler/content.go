package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/contentpilot/api/internal/model"
	"github.com/contentpilot/api/internal/service"
	"github.com/contentpilot/api/pkg/response"
)

type ContentHandler struct {
	service   *service.ContentService
	validator *validator.Validate
}

func NewContentHandler(svc *service.ContentService, v *validator.Validate) *ContentHandler {
	return &ContentHandler{
		service:   svc,
		validator: v,
	}
}

// Score handles POST /api/content/score
// @Summary      Score content
// @Description  Rate readability, completeness, entity coverage, uniqueness and engagement
// @Tags         Content
// @Accept       json
// @Produce      json
// @Param        request body model.ScoreRequest true "Score request"
// @Success      200 {object} model.ScoreReport
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/content/score [post]
func (h *ContentHandler) Score(c *fiber.Ctx) error {
	var req model.ScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	return response.OK(c, h.service.Score(&req))
}

// PublishCheck handles POST /api/content/publish-check
// @Summary      Check a record for publishing
// @Tags         Content
// @Accept       json
// @Produce      json
// @Param        request body model.PublishCheckRequest true "Publish check request"
// @Success      200 {object} model.PublishReport
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/content/publish-check [post]
func (h *ContentHandler) PublishCheck(c *fiber.Ctx) error {
	var req model.PublishCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	return response.OK(c, h.service.PublishCheck(&req))
}
