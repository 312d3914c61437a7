package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/time/rate"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/catalog"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Throttle forecast calls; FORECAST_RPS <= 0 disables the limit.
	limit := rate.Inf
	if cfg.ForecastRPS > 0 {
		limit = rate.Limit(cfg.ForecastRPS)
	}
	forecast := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey,
		rate.NewLimiter(limit, cfg.ForecastBurst))
	forecast.SetBaseURL(cfg.ForecastURL)
	forecast.SetUnits(cfg.Units)

	history := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	dash := dashboard.New(forecast, dashboard.Options{
		Timeout: cfg.HTTPTimeout,
		History: history,
		OnStatus: func(text string) {
			log.Printf("INFO: status: %s", text)
		},
	})

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := dash.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("dashboard loop stopped: %v", err)
		}
	}()

	// The catalog is large; load it in the background so the API is up at once.
	// The loader drops the client timeout; the archive download is bounded by ctx.
	loader := catalog.NewLoader(httpClient, cfg.CatalogURL, cfg.CatalogPath)
	loader.OnStatus(dash.Announce)
	cities := catalog.NewLazy(loader)
	go func() {
		if cat, err := cities.Get(ctx); err == nil {
			log.Printf("INFO: city catalog ready with %d cities", cat.Len())
		}
	}()

	sched := scheduler.New(cfg.RefreshInterval, cfg.HTTPTimeout, dash)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Cities:          cities,
		Dashboard:       dash,
		History:         history,
		ExportDir:       cfg.ExportDir,
		SuggestionLimit: cfg.SuggestionLimit,
	})

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
	<-loopDone
}
