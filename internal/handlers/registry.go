package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mangrove/mangrove/internal/models"
)

// CreateFormModel handles form model creation and revision
// POST /v1/form-models
func (h *Handler) CreateFormModel(c *fiber.Ctx) error {
	var req models.CreateFormModelRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}
	if err := req.Validate(); err != nil {
		return h.respondError(c, err)
	}

	form, err := h.registryService.SaveFormModel(c.UserContext(), &req)
	if err != nil {
		return h.respondError(c, err)
	}

	status := fiber.StatusCreated
	if form.Revision > 1 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(models.NewFormModelResponse(form))
}

// GetFormModel returns one form model
// GET /v1/form-models/:code
func (h *Handler) GetFormModel(c *fiber.Ctx) error {
	form, err := h.registryService.GetFormModel(c.UserContext(), c.Params("code"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(models.NewFormModelResponse(form))
}

// CreateEntity handles entity registration
// POST /v1/entities
func (h *Handler) CreateEntity(c *fiber.Ctx) error {
	var req models.CreateEntityRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}
	if err := req.Validate(); err != nil {
		return h.respondError(c, err)
	}

	entity, err := h.registryService.SaveEntity(c.UserContext(), &req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.NewEntityResponse(entity))
}

// GetEntity returns one entity
// GET /v1/entities/:id
func (h *Handler) GetEntity(c *fiber.Ctx) error {
	entity, err := h.registryService.GetEntity(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(models.NewEntityResponse(entity))
}
