package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mangrove/mangrove/internal/config"
	"github.com/mangrove/mangrove/internal/handlers"
	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/middleware"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, h *handlers.Handler, cfg config.Config) {
	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled)
	v1 := app.Group("/v1", authMiddleware)

	// Registry Routes
	v1.Post("/form-models", h.CreateFormModel)
	v1.Get("/form-models/:code", h.GetFormModel)
	v1.Post("/entities", h.CreateEntity)
	v1.Get("/entities/:id", h.GetEntity)

	// Submission Routes
	v1.Post("/submissions", h.Submit)
	v1.Post("/submissions/batch", h.SubmitBatch)
	v1.Get("/submissions/:id", h.GetSubmission)

	// Aggregation Routes
	v1.Post("/aggregate/entity-types/:entity_type", h.AggregateByEntityType)
	v1.Post("/aggregate/forms/:form_code", h.AggregateForForm)
	v1.Post("/aggregate/forms/:form_code/time-filter", h.AggregateWithTimeFilter)
	v1.Post("/aggregate/forms/:form_code/period", h.AggregateForPeriod)
	v1.Get("/latest/:entity_type", h.Latest)

	// 404 handler
	app.Use(h.NotFound)
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, h *handlers.Handler, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Mangrove",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		BodyLimit:             cfg.Server.BodyLimit,
	})

	Setup(app, logger, h, cfg)

	return app
}
