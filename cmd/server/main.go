// planbridge - business plan session server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/planbridge/internal/api"
	"github.com/ashureev/planbridge/internal/config"
	"github.com/ashureev/planbridge/internal/generator"
	"github.com/ashureev/planbridge/internal/middleware"
	"github.com/ashureev/planbridge/internal/plan"
	"github.com/ashureev/planbridge/internal/prompt"
	"github.com/ashureev/planbridge/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath, store.Options{DefaultLanguage: cfg.DefaultLanguage})
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	catalog, err := prompt.LoadCatalog(cfg.PromptCatalogPath)
	if err != nil {
		slog.Error("Failed to load prompt catalog", "error", err, "path", cfg.PromptCatalogPath)
		os.Exit(1)
	}
	prompts, err := prompt.NewBuilder(catalog)
	if err != nil {
		slog.Error("Failed to parse prompt templates", "error", err)
		os.Exit(1)
	}

	gen := generator.NewAnthropicClient(generator.AnthropicConfig{
		APIKey:     cfg.Generator.APIKey,
		BaseURL:    cfg.Generator.BaseURL,
		Model:      cfg.Generator.Model,
		APIVersion: cfg.Generator.APIVersion,
		Timeout:    cfg.Generation.Timeout,
	})
	if !cfg.GeneratorConfigured() {
		slog.Warn("CLAUDE_API_KEY not set, generation requests will fail")
	} else {
		slog.Info("Generator configured", "generator", gen.Name())
	}

	plans := plan.NewService(repo, gen, prompts, plan.Options{
		MaxTokens:  cfg.Generator.MaxTokens,
		ClaimLease: cfg.Generation.ClaimLease,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Claims left behind by a crashed process are freed on startup and then periodically.
	if _, err := plan.ReapStaleClaims(ctx, repo, cfg.Generation.ClaimLease); err != nil {
		slog.Warn("Initial claim sweep failed", "error", err)
	}
	plan.StartClaimReaper(ctx, repo, cfg.Generation.ReaperInterval, cfg.Generation.ClaimLease)

	var generateLimit func(http.Handler) http.Handler
	if cfg.RateLimit.PerMinute > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
		limiter.StartCleanup(ctx)
		generateLimit = limiter.Handler
		slog.Info("Generate rate limit enabled", "per_minute", cfg.RateLimit.PerMinute, "burst", cfg.RateLimit.Burst)
	}

	router := api.NewRouter(api.RouterConfig{
		Sessions:       api.NewSessionHandler(repo, cfg.MaxBodyBytes),
		Generate:       api.NewGenerateHandler(plans, cfg.MaxBodyBytes),
		Health:         api.NewHealthHandler(repo, cfg.Timeout.HealthCheck, cfg.GeneratorConfigured()),
		AllowedOrigins: cfg.AllowedOrigins,
		GenerateLimit:  generateLimit,
		AccessLog:      true,
	})

	// Generation requests wait on the upstream API, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: cfg.Timeout.Read,
		IdleTimeout: cfg.Timeout.Idle,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout.Shutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
