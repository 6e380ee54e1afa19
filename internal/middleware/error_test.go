package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/models"
)

func errorApp(err error) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.NewNop())})
	app.Get("/test", func(c *fiber.Ctx) error {
		return err
	})
	return app
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"bad request", fiber.ErrBadRequest, fiber.StatusBadRequest, "BAD_REQUEST", "Bad Request"},
		{"unauthorized", fiber.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"},
		{"not found", fiber.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "Not Found"},
		{"body too large", fiber.ErrRequestEntityTooLarge, fiber.StatusRequestEntityTooLarge, "REQUEST_ENTITY_TOO_LARGE", "Request Entity Too Large"},
		{"teapot", fiber.NewError(fiber.StatusTeapot, "I'm a teapot"), fiber.StatusTeapot, "IM_A_TEAPOT", "I'm a teapot"},
		{"wrapped fiber error", errors.Join(errors.New("ctx"), fiber.ErrServiceUnavailable), fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service Unavailable"},
		{"generic error", errors.New("something went wrong"), fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := errorApp(tt.err).Test(httptest.NewRequest("GET", "/test", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, fiber.MIMEApplicationJSON, resp.Header.Get(fiber.HeaderContentType))

			body, _ := io.ReadAll(resp.Body)
			var errResp models.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, tt.wantCode, errResp.Error.Code)
			assert.Equal(t, tt.wantMsg, errResp.Error.Message)
			assert.Equal(t, "/test", errResp.Error.Path)
		})
	}
}
