package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mangrove/mangrove/internal/datastore"
	"github.com/mangrove/mangrove/internal/models"
	"github.com/mangrove/mangrove/internal/utils"
)

// transportHTTP tags submissions received over the REST API
const transportHTTP = "http"

// Submit queues one submission
// POST /v1/submissions
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req models.SubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}
	if err := req.Validate(); err != nil {
		return h.respondError(c, err)
	}

	id, err := h.submissionService.Submit(c.UserContext(), &req, transportHTTP)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(models.SubmissionAcceptedResponse{
		IDs:    []string{id},
		Status: string(datastore.SubmissionPending),
	})
}

// SubmitBatch queues several submissions. All are validated before any is queued.
// POST /v1/submissions/batch
func (h *Handler) SubmitBatch(c *fiber.Ctx) error {
	var req models.SubmissionBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}

	if len(req.Submissions) == 0 {
		return h.respondError(c, fiber.NewError(fiber.StatusBadRequest, "'submissions' must not be empty"))
	}
	if len(req.Submissions) > utils.MaxSubmissionBatch {
		return h.respondError(c, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("at most %d submissions per batch", utils.MaxSubmissionBatch)))
	}
	for i := range req.Submissions {
		if err := req.Submissions[i].Validate(); err != nil {
			fiberErr := err.(*fiber.Error)
			return h.respondError(c, fiber.NewError(fiberErr.Code,
				fmt.Sprintf("submissions[%d]: %s", i, fiberErr.Message)))
		}
	}

	ids, err := h.submissionService.SubmitBatch(c.UserContext(), req.Submissions, transportHTTP)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(models.SubmissionAcceptedResponse{
		IDs:    ids,
		Status: string(datastore.SubmissionPending),
	})
}

// GetSubmission returns the processing state of a submission
// GET /v1/submissions/:id
func (h *Handler) GetSubmission(c *fiber.Ctx) error {
	log, err := h.submissionService.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(models.NewSubmissionResponse(log))
}
