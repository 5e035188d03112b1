// Orderbot - food order assistant server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/orderbot/internal/agent"
	"github.com/ashureev/orderbot/internal/api"
	"github.com/ashureev/orderbot/internal/config"
	"github.com/ashureev/orderbot/internal/menu"
	"github.com/ashureev/orderbot/internal/middleware"
	"github.com/ashureev/orderbot/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	catalog, err := menu.Load(cfg.MenuPath)
	if err != nil {
		return fmt.Errorf("failed to load menu: %w", err)
	}
	slog.Info("Menu loaded", "dishes", len(catalog.Dishes()), "custom", cfg.MenuPath != "")

	parser := agent.IntentParser(agent.NewHeuristicParser())
	if cfg.Gemini.Enabled() {
		gemini, err := agent.NewGeminiParser(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, parser, logger)
		if err != nil {
			slog.Warn("Gemini parser unavailable, using heuristic parser", "error", err)
		} else {
			parser = gemini
			slog.Info("Gemini intent parser enabled", "model", cfg.Gemini.Model)
		}
	} else {
		slog.Info("GEMINI_API_KEY not set, using heuristic intent parser")
	}

	conversationLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize conversation logger: %w", err)
	}

	service := agent.NewService(repo, catalog, parser, logger)
	chatHandler := agent.NewHandler(service, conversationLogger, agent.HandlerConfig{
		RateLimitRequests:   cfg.RateLimit.RequestsPerWindow,
		RateLimitWindow:     cfg.RateLimit.WindowDuration,
		MaxRequestBodyBytes: cfg.HTTP.MaxRequestBodySize,
		AllowedOrigins:      cfg.AllowedOrigins,
	}, logger)
	defer chatHandler.Close()

	healthHandler := api.NewHealthHandler(repo, version)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Method(http.MethodGet, "/health", healthHandler)
	chatHandler.RegisterRoutes(r)

	// No WriteTimeout: WebSocket connections are long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return store.RunTTLWorker(gctx, repo, cfg.SessionTTL, cfg.SessionSweepInterval)
	})

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openRepository opens the SQLite store, or the in-memory store when DB_PATH
// is empty.
func openRepository(cfg *config.Config) (store.Repository, error) {
	if cfg.DBPath == "" {
		slog.Warn("DB_PATH is empty, sessions are kept in memory only")
		return store.NewMemory(cfg.SessionTTL, cfg.SessionSweepInterval), nil
	}
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database connected", "path", cfg.DBPath)
	return repo, nil
}
