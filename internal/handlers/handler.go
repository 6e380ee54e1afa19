package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/models"
	"github.com/mangrove/mangrove/internal/services"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger *logging.Logger
	// Services
	registryService    *services.RegistryService
	submissionService  *services.SubmissionService
	aggregationService *services.AggregationService
}

// New creates a new handler instance
func New(logger *logging.Logger,
	registryService *services.RegistryService,
	submissionService *services.SubmissionService,
	aggregationService *services.AggregationService,
) *Handler {
	return &Handler{
		logger:             logger,
		registryService:    registryService,
		submissionService:  submissionService,
		aggregationService: aggregationService,
	}
}

// invalidJSON answers a body that could not be parsed
func invalidJSON(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INVALID_JSON",
			Message: "Failed to parse JSON body",
			Details: map[string]interface{}{"error": err.Error()},
		},
	})
}

// respondError writes validation and service errors as an ErrorResponse
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    services.CodeInvalidRequest,
				Message: fiberErr.Message,
			},
		})
	}

	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		return c.Status(svcErr.Status()).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    svcErr.Code,
				Message: svcErr.Message,
				Details: svcErr.Details,
			},
		})
	}

	h.logger.Error("Unhandled handler error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    services.CodeInternal,
			Message: err.Error(),
		},
	})
}
