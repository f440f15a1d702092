package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/joho/godotenv"

	"district-dashboard/internal/config"
	"district-dashboard/internal/middleware"
	"district-dashboard/internal/observability"
	"district-dashboard/internal/schema"
	"district-dashboard/internal/server"
	"district-dashboard/internal/services"
	"district-dashboard/internal/source"
	"district-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	cacheMaxAge    = "public, max-age=300"
	dashboardTitle = "Seoul coffee shop districts"
	sweepInterval  = time.Minute
)

func handleDashboard(analytics *services.Analytics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		quarters, err := analytics.Quarters(ctx)
		if err != nil {
			observability.LoggerFromContext(ctx, logger).Error("dashboard quarters", "error", err)
			http.Error(w, "data unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Cache-Control", cacheMaxAge)
		templ.Handler(templates.Dashboard(dashboardTitle, quarters)).ServeHTTP(w, r.WithContext(ctx))
	}
}

func newHandler(cfg *config.Config, analytics *services.Analytics, limiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	srv := server.NewServer(analytics, logger, handleDashboard(analytics, logger))

	return middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
	)(srv)
}

func newLoader(cfg *config.Config, logger *slog.Logger) (*source.Loader, *schema.Schema, error) {
	s, err := schema.Load(cfg.Data.SchemaFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load schema: %w", err)
	}

	loader := source.NewLoader(source.Options{
		Stores:      source.File{Path: cfg.Data.StoreFile, Encoding: cfg.Data.SourceEncoding},
		FootTraffic: source.File{Path: cfg.Data.FootTrafficFile, Encoding: cfg.Data.SourceEncoding},
		Sales:       source.File{Path: cfg.Data.SalesFile, Encoding: cfg.Data.SourceEncoding},
		Coordinates: source.File{Path: cfg.Data.CoordinateFile, Encoding: cfg.Data.CoordinateEncoding},
		Category:    cfg.Data.TargetCategory,
		CacheDir:    cfg.Data.CacheDir,
	}, s, logger)
	return loader, s, nil
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tp, err := observability.NewTracerProvider(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	loader, s, err := newLoader(cfg, logger)
	if err != nil {
		return err
	}
	analytics := services.NewAnalytics(loader, s, logger)
	analytics.SetLoadTimeout(cfg.Data.LoadTimeout)

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Data.LoadTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.Load(loadCtx); err != nil {
		var unavailable *source.UnavailableError
		if errors.As(err, &unavailable) {
			logger.Error("data source unavailable",
				"source", unavailable.Source,
				"path", unavailable.Path,
				"error", unavailable.Err,
			)
		}
		_ = tp.Shutdown(context.Background())
		return fmt.Errorf("load dataset: %w", err)
	}
	logger.Info("dataset loaded", "duration", time.Since(start))

	limiter := middleware.NewRateLimiter(cfg.Security)
	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, limiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)
	gracefulServer.Every(sweepInterval, func(now time.Time) {
		logger.Debug("rate limiter swept", "visitors", limiter.Sweep(now))
	})
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("flushing traces")
		return tp.Shutdown(ctx)
	})

	return gracefulServer.ListenAndServe(ctx)
}

func main() {
	if err := godotenv.Load(".env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env.local", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"addr", cfg.Address(),
		"category", cfg.Data.TargetCategory,
		"cache_dir", cfg.Data.CacheDir,
	)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("application failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
