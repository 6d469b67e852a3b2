package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	httpapi "github.com/i474232898/weather-ingest/internal/api/http"
	"github.com/i474232898/weather-ingest/internal/config"
	"github.com/i474232898/weather-ingest/internal/metrics"
	"github.com/i474232898/weather-ingest/internal/scheduler"
	"github.com/i474232898/weather-ingest/internal/store"
	"github.com/i474232898/weather-ingest/internal/weather"
	"github.com/i474232898/weather-ingest/internal/weather/providers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Embedded table store, kept open for the life of the process.
	db, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	noaa := providers.NewNOAAProvider(providers.Config{
		Client:     httpClient,
		BaseURL:    cfg.NOAABaseURL,
		UserAgent:  cfg.NOAAUserAgent,
		MaxRetries: cfg.MaxRetries,
	})
	nwac := providers.NewNWACProvider(providers.Config{
		Client:     httpClient,
		BaseURL:    cfg.NWACBaseURL,
		Token:      cfg.NWACToken,
		MaxRetries: cfg.MaxRetries,
	})

	recorder := metrics.NewPrometheusRecorder()

	// Core service orchestrating providers and store.
	service := weather.NewService(db, noaa, nwac, cfg.Sites,
		weather.WithRecorder(recorder),
		weather.WithWindowPolicy(cfg.WindowPolicy()),
	)

	// Scheduler that periodically runs ingestion.
	sched := scheduler.New(cfg.FetchInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration. Ingestion can take minutes, so no write
	// timeout is set.
	app := fiber.New(fiber.Config{
		AppName:               "weather-ingest",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-ingest",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, recorder.Handler())

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
