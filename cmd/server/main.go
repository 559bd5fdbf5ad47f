package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"prospector/internal/config"
	"prospector/internal/export"
	"prospector/internal/handlers"
	"prospector/internal/ingestion"
	"prospector/internal/provider"
	"prospector/internal/queue"
	"prospector/internal/spreadsheet"
	"prospector/internal/storage"
	"prospector/internal/version"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	slog.Info("database ready", "path", cfg.DatabasePath)

	jobRepo := storage.NewJobRepository(db)
	profileRepo := storage.NewProfileRepository(db)
	userRepo := storage.NewUserRepository(db)

	fetcher, err := provider.NewClient(&provider.Options{
		Stealth:     cfg.ProviderStealth,
		Proxy:       cfg.ProviderProxy,
		BrowserPath: cfg.ProviderBrowserPath,
	})
	if err != nil {
		return fmt.Errorf("start provider client: %w", err)
	}
	defer fetcher.Close()

	reader := spreadsheet.NewReader()
	writer := spreadsheet.NewWriter(filepath.Join(cfg.DataDir, "results"))
	compiler := export.NewCompiler(profileRepo, writer)

	scheduler := queue.NewScheduler(jobRepo, profileRepo, fetcher, queue.SchedulerConfig{
		ItemDelay:  cfg.ItemDelay,
		BatchDelay: cfg.BatchDelay,
		Retry: queue.RetryConfig{
			MaxAttempts:  cfg.RetryMaxAttempts,
			InitialDelay: cfg.RetryInitialDelay,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobQueue := queue.New(jobRepo, profileRepo, userRepo, reader, scheduler, compiler, cfg.WorkerInterval)
	jobQueue.Start(ctx)
	defer jobQueue.Shutdown()

	ingester := ingestion.NewSpreadsheetIngester(jobRepo, userRepo, reader, jobQueue, cfg.DataDir, cfg.BatchSize)

	jobHandler := handlers.NewJobHandler(jobRepo, profileRepo, ingester, jobQueue, compiler)
	userHandler := handlers.NewUserHandler(userRepo)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version.Version,
		})
	})

	api := e.Group("/api")
	api.POST("/users", userHandler.Create)
	api.GET("/users/:id", userHandler.Get)
	api.POST("/jobs", jobHandler.Upload)
	api.GET("/jobs", jobHandler.List)
	api.GET("/jobs/:id", jobHandler.Get)
	api.GET("/jobs/:id/profiles", jobHandler.Profiles)
	api.POST("/jobs/:id/pause", jobHandler.Pause)
	api.POST("/jobs/:id/resume", jobHandler.Resume)
	api.POST("/jobs/:id/stop", jobHandler.Stop)
	api.GET("/jobs/:id/download", jobHandler.Download)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "version", version.Version)
		errCh <- e.Start(fmt.Sprintf(":%d", cfg.Port))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
