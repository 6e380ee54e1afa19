package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/mangrove/mangrove/internal/aggregation"
	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/models"
)

type aggregateFunc func(ctx context.Context, target string, input *models.AggregateRequest) (aggregation.Result, error)

type validateFunc func(input *models.AggregateRequest) error

// AggregateByEntityType groups the values of an entity type
// POST /v1/aggregate/entity-types/:entity_type
func (h *Handler) AggregateByEntityType(c *fiber.Ctx) error {
	return h.executeAggregate(c, c.Params("entity_type"), (*models.AggregateRequest).Validate, h.aggregationService.AggregateByEntityType)
}

// AggregateForForm groups the values submitted through one form
// POST /v1/aggregate/forms/:form_code
func (h *Handler) AggregateForForm(c *fiber.Ctx) error {
	return h.executeAggregate(c, c.Params("form_code"), (*models.AggregateRequest).Validate, h.aggregationService.AggregateForForm)
}

// AggregateWithTimeFilter reduces one form's values inside a time window
// POST /v1/aggregate/forms/:form_code/time-filter
func (h *Handler) AggregateWithTimeFilter(c *fiber.Ctx) error {
	return h.executeAggregate(c, c.Params("form_code"), (*models.AggregateRequest).ValidateTimeFilter, h.aggregationService.AggregateWithTimeFilter)
}

// AggregateForPeriod reads one form's values for a calendar period
// POST /v1/aggregate/forms/:form_code/period
func (h *Handler) AggregateForPeriod(c *fiber.Ctx) error {
	return h.executeAggregate(c, c.Params("form_code"), (*models.AggregateRequest).Validate, h.aggregationService.AggregateForPeriod)
}

// executeAggregate parses and validates the body, runs fn and returns the response
func (h *Handler) executeAggregate(c *fiber.Ctx, target string, validate validateFunc, fn aggregateFunc) error {
	var input models.AggregateRequest
	if err := c.BodyParser(&input); err != nil {
		return invalidJSON(c, err)
	}
	if err := validate(&input); err != nil {
		return h.respondError(c, err)
	}

	ctx := c.UserContext()
	if c.Params("form_code") != "" {
		ctx = logging.WithFormCode(ctx, target)
	}

	result, err := fn(ctx, target, &input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(models.AggregateResponse{Results: result})
}

// Latest returns the most recent value of every field of each entity of a type
// GET /v1/latest/:entity_type
func (h *Handler) Latest(c *fiber.Ctx) error {
	entityType := c.Params("entity_type")
	values, err := h.aggregationService.Latest(c.UserContext(), entityType)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(models.LatestResponse{
		EntityType: entityType,
		Values:     values,
	})
}
