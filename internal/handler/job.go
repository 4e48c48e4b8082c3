package handler

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/contentpilot/api/internal/jobs"
	"github.com/contentpilot/api/internal/middleware"
	"github.com/contentpilot/api/internal/model"
	"github.com/contentpilot/api/internal/service"
	"github.com/contentpilot/api/pkg/response"
)

// HeaderIdempotencyReplayed marks a create response served from the idempotency cache
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

type JobHandler struct {
	service   *service.JobService
	validator *validator.Validate
}

func NewJobHandler(svc *service.JobService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/jobs
// @Summary      Start a content job
// @Description  Queue a generate or optimize job for the target URL
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Param        request body model.JobCreateRequest true "Job request"
// @Param        Idempotency-Key header string false "Collapses duplicate creates"
// @Success      202 {object} model.JobCreateResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/jobs [post]
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var req model.JobCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if req.SiteID == "" {
		if siteID, ok := c.Locals("siteId").(string); ok {
			req.SiteID = siteID
		}
	}

	result, replayed, err := h.service.StartJob(c.UserContext(), &req, middleware.GetIdempotencyKey(c))
	if err != nil {
		return response.ServiceError(c, "Failed to start job")
	}
	if replayed {
		c.Set(HeaderIdempotencyReplayed, "true")
	}

	return response.Accepted(c, result)
}

// List handles GET /api/jobs
// @Summary      List jobs
// @Tags         Jobs
// @Produce      json
// @Success      200 {object} model.JobListResponse
// @Security     BearerAuth
// @Router       /api/jobs [get]
func (h *JobHandler) List(c *fiber.Ctx) error {
	return response.OK(c, h.service.List())
}

// Status handles GET /api/jobs/:jobId
// @Summary      Get job status
// @Description  Full job snapshot with per-stage progress
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.Job
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/jobs/{jobId} [get]
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")

	job, err := h.service.GetStatus(jobID)
	if err != nil {
		return response.NotFound(c, "Job not found")
	}

	return response.OK(c, job)
}

// Result handles GET /api/jobs/:jobId/result
// @Summary      Get job result
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ContentResult
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/jobs/{jobId}/result [get]
func (h *JobHandler) Result(c *fiber.Ctx) error {
	result, err := h.service.GetResult(c.Params("jobId"))
	if err != nil {
		return jobError(c, err)
	}
	return response.OK(c, result)
}

// PublishCheck handles GET /api/jobs/:jobId/publish-check
// @Summary      Check a job result for publishing
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Param        minQualityScore query int false "Minimum quality score (0-100)"
// @Success      200 {object} model.PublishReport
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/jobs/{jobId}/publish-check [get]
func (h *JobHandler) PublishCheck(c *fiber.Ctx) error {
	var minQuality *int
	if raw := c.Query("minQualityScore"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 100 {
			return response.ValidationError(c, "Validation failed", map[string]string{
				"minQualityScore": "range",
			})
		}
		minQuality = &v
	}

	report, err := h.service.PublishCheck(c.Params("jobId"), minQuality)
	if err != nil {
		return jobError(c, err)
	}
	return response.OK(c, report)
}

func jobError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, service.ErrJobNotComplete):
		return response.JobNotComplete(c, "Job is not complete yet")
	default:
		return response.ServiceError(c, err.Error())
	}
}

func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string, len(validationErrors))
		for _, e := range validationErrors {
			fields[e.Field()] = e.Tag()
		}
		return fields
	}
	return nil
}
