package router

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangrove/mangrove/internal/aggregation"
	"github.com/mangrove/mangrove/internal/config"
	"github.com/mangrove/mangrove/internal/datastore"
	"github.com/mangrove/mangrove/internal/handlers"
	"github.com/mangrove/mangrove/internal/ingest"
	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/queue"
	"github.com/mangrove/mangrove/internal/services"
)

var testKey = strings.Repeat("k", 32)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := logging.NewNop()

	store, err := datastore.Open(datastore.Options{InMemory: true, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	q, err := queue.NewQueue(config.QueueConfig{Type: "memory"}, queue.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	h := handlers.New(logger,
		services.NewRegistryService(logger, store),
		services.NewSubmissionService(logger, ingest.NewSubmitter(q, store, "", logger), store),
		services.NewAggregationService(logger, aggregation.NewEngine(store, store, aggregation.Config{Logger: logger})),
	)

	cfg := *config.DefaultConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{testKey}}
	return New(logger, h, cfg)
}

func TestRoutes(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name       string
		method     string
		path       string
		key        string
		wantStatus int
	}{
		{"health needs no key", "GET", "/health", "", fiber.StatusOK},
		{"v1 needs a key", "GET", "/v1/form-models/CL1", "", fiber.StatusUnauthorized},
		{"form model lookup", "GET", "/v1/form-models/CL1", testKey, fiber.StatusNotFound},
		{"entity lookup", "GET", "/v1/entities/e1", testKey, fiber.StatusNotFound},
		{"submission lookup", "GET", "/v1/submissions/s1", testKey, fiber.StatusNotFound},
		{"latest", "GET", "/v1/latest/clinic", testKey, fiber.StatusOK},
		{"unknown route", "GET", "/v2/anything", "", fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(logging.RequestIDHeader))
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(logging.RequestIDHeader, "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Header.Get(logging.RequestIDHeader))
}
