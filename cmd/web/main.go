package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"pasale-analytics/internal/config"
	"pasale-analytics/internal/handlers"
	"pasale-analytics/internal/middleware"
	"pasale-analytics/internal/observability"
	"pasale-analytics/internal/server"
	"pasale-analytics/internal/services"
	"pasale-analytics/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
	maxBodyBytes  = 1 << 20
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"plan", cfg.Subscription.DefaultPlan,
	)

	opts, err := services.OptionsFromConfig(cfg)
	if err != nil {
		logger.Error("invalid pipeline options", "error", err)
		os.Exit(1)
	}
	pipeline := services.NewPipeline(opts, logger)
	sources := services.SourcesFromConfig(cfg.Data)

	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	start := time.Now()
	err = pipeline.Load(loadCtx, sources)
	cancel()
	if err != nil {
		logger.Error("failed to load data", "error", err)
		os.Exit(1)
	}
	logger.Info("data loaded successfully", "duration", time.Since(start))

	if cfg.Model.TrainOnStartup && !pipeline.Trained() {
		trainCtx, cancel := context.WithTimeout(context.Background(), cfg.Model.TrainTimeout)
		if _, err := pipeline.Train(trainCtx); err != nil {
			logger.Warn("startup training skipped", "error", err)
		}
		cancel()
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	apiConfig := handlers.APIConfig{
		Sources:      sources,
		OutputDir:    cfg.Data.OutputDir,
		LoadTimeout:  cfg.Data.LoadTimeout,
		TrainTimeout: cfg.Model.TrainTimeout,
	}
	srv := server.NewServer(pipeline, apiConfig, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.MaxBodySize(maxBodyBytes),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if cfg.Security.EnableRateLimit {
		go rateLimiter.Run(ctx)
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook("rate-limiter", func(context.Context) error {
		stop()
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
