package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/models"
)

// ErrorHandler returns a custom error handler middleware. Errors that reach
// it were not answered by a handler: fiber errors keep their status, anything
// else is a 500.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		}

		log := logger.WithContext(c.UserContext())
		fields := []interface{}{
			"path", c.Path(),
			"method", c.Method(),
			"status", code,
			"error", err,
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("Request error", fields...)
		} else {
			log.Warn("Request error", fields...)
		}

		return c.Status(code).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    statusCode(code),
				Message: message,
				Path:    c.Path(),
			},
		})
	}
}

// statusCode turns an HTTP status into an error code, e.g. 413 -> REQUEST_ENTITY_TOO_LARGE
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" || status == fiber.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text))
}
