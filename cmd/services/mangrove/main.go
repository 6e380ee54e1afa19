package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mangrove/mangrove/internal/aggregation"
	"github.com/mangrove/mangrove/internal/config"
	"github.com/mangrove/mangrove/internal/datastore"
	"github.com/mangrove/mangrove/internal/handlers"
	"github.com/mangrove/mangrove/internal/ingest"
	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/queue"
	"github.com/mangrove/mangrove/internal/router"
	"github.com/mangrove/mangrove/internal/services"
	"github.com/mangrove/mangrove/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Mangrove starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal("Failed to create data directory", "error", err)
	}

	// 3. Open the datastore
	location, err := cfg.Storage.Location()
	if err != nil {
		logger.Fatal("Invalid storage timezone", "error", err)
	}
	store, err := datastore.Open(datastore.Options{
		Path:       cfg.Storage.DataDir,
		InMemory:   cfg.Storage.InMemory,
		SyncWrites: cfg.Storage.SyncWrites,
		Timezone:   location,
		Logger:     logger.With("component", "datastore"),
	})
	if err != nil {
		logger.Fatal("Failed to open datastore", "error", err)
	}
	defer func() { _ = store.Close() }()

	// 4. Connect to Queue (configurable backend)
	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	queueClient, err := queue.NewQueue(cfg.Queue, queue.Options{
		MaxDeliver: cfg.Ingest.MaxRetries,
		RetryDelay: cfg.Ingest.RetryDelay,
		Logger:     logger.With("component", "queue"),
	})
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	defer func() { _ = queueClient.Close() }()
	logger.Info("Queue connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Start consuming submissions
	var ingestService *ingest.Service
	if cfg.Ingest.Enabled {
		processor := ingest.NewProcessor(store, logger)
		ingestService = ingest.NewService(queueClient, processor, cfg.Ingest.Subject, logger)
		if err := ingestService.Start(ctx); err != nil {
			logger.Fatal("Failed to start ingest service", "error", err)
		}
	} else {
		logger.Info("Ingest disabled - submissions are queued but not consumed by this process")
	}

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	// 6. Wire services and HTTP
	engine := aggregation.NewEngine(store, store, aggregation.Config{
		Logger: logger.With("component", "aggregation"),
	})
	h := handlers.New(logger,
		services.NewRegistryService(logger, store),
		services.NewSubmissionService(logger,
			ingest.NewSubmitter(queueClient, store, cfg.Ingest.Subject, logger), store),
		services.NewAggregationService(logger, engine),
	)
	app := router.New(logger, h, *cfg)

	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if ingestService != nil {
		_ = ingestService.Stop()
	}

	logger.Info("Server exited")
}
