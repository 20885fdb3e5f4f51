package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/rajasatyajit/DisasterWatch/config"
	"github.com/rajasatyajit/DisasterWatch/internal/api"
	"github.com/rajasatyajit/DisasterWatch/internal/correlator"
	"github.com/rajasatyajit/DisasterWatch/internal/database"
	"github.com/rajasatyajit/DisasterWatch/internal/logger"
	"github.com/rajasatyajit/DisasterWatch/internal/metrics"
	middlewares "github.com/rajasatyajit/DisasterWatch/internal/middleware"
	"github.com/rajasatyajit/DisasterWatch/internal/pipeline"
	"github.com/rajasatyajit/DisasterWatch/internal/ratelimit"
	"github.com/rajasatyajit/DisasterWatch/internal/scheduler"
	"github.com/rajasatyajit/DisasterWatch/internal/store"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// runner adapts the pipeline and correlator to the scheduler
type runner struct {
	pipeline   *pipeline.Pipeline
	correlator *correlator.Correlator
}

func (r *runner) Ingest(ctx context.Context) error {
	_, err := r.pipeline.RunAll(ctx)
	return err
}

func (r *runner) Sweep(ctx context.Context) error {
	_, err := r.correlator.SweepExpired(ctx)
	return err
}

func main() {
	// Load .env when present; real environments set variables directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting DisasterWatch application",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
		"feeds", len(cfg.Feeds),
	)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close()

	// Initialize store
	dataStore := store.New(db)
	if pg, ok := dataStore.(*store.PostgresStore); ok {
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to ensure database schema", "error", err)
		}
	}

	// Initialize pipeline and correlator
	corr := correlator.New(dataStore)
	ingestPipeline := pipeline.New(cfg.Pipeline, cfg.Feeds, dataStore, corr)

	// Start scheduler
	sched := scheduler.New(cfg.Scheduler, &runner{pipeline: ingestPipeline, correlator: corr})
	if err := sched.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	// Optional Redis-backed rate limiting
	var limiter *ratelimit.Manager
	if cfg.Redis.URL != "" {
		limiter, err = ratelimit.NewManager(cfg.Redis.URL)
		if err != nil {
			logger.Warn("Redis unavailable, using in-memory rate limiting", "error", err)
		} else {
			defer limiter.Close()
		}
	}

	// Setup HTTP server
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))
	r.Use(middlewares.Security)
	r.Use(middlewares.RateLimit(limiter, cfg.Server.RateLimitPerMinute))

	// Initialize API handlers
	apiHandler := api.NewHandler(dataStore, ingestPipeline, cfg.Feeds, cfg.Admin.AdminSecret, Version, BuildTime, GitCommit)
	apiHandler.RegisterRoutes(r)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func startMetricsServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", "address", addr, "path", path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", "error", err)
	}
}
