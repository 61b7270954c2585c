package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/neexbeast/tripwise/internal/api"
	"github.com/neexbeast/tripwise/internal/cache"
	"github.com/neexbeast/tripwise/internal/config"
	"github.com/neexbeast/tripwise/internal/gemini"
	"github.com/neexbeast/tripwise/internal/planner"
	"github.com/neexbeast/tripwise/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	log := setupLogger(cfg.Logging)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	// Run migrations. The embedded set is used unless MIGRATIONS_DIR overrides it.
	var migrations fs.FS = storage.Migrations()
	if cfg.Database.MigrationsDir != "" {
		migrations = os.DirFS(cfg.Database.MigrationsDir)
	}
	applied, err := storage.RunMigrations(ctx, pool, migrations)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied", "files", applied)

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	// Wire dependencies.
	repo := storage.NewRepository(pool)
	limiter := cache.NewRateLimiter(redisClient, cfg.RateLimit.Ceiling)
	gen := gemini.NewClient(cfg.Gemini.APIKey,
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithTimeout(cfg.Gemini.Timeout),
		gemini.WithMaxRPS(cfg.Gemini.MaxRPS),
	)
	plan := planner.New(cache.NewItineraryCache(redisClient), limiter, gen, repo, log)
	handlers := api.NewHandlers(plan, repo, limiter, cfg.Server.PublicBaseURL, log)

	// Build router with pingers adapted for health check.
	dbPinger := &pgxPoolPinger{pool: pool}
	redisPinger := cache.NewPinger(redisClient)

	router := api.NewRouter(handlers, api.RouterOptions{
		AdminToken:     cfg.Server.AdminToken,
		PerIPPerMinute: cfg.RateLimit.PerIPPerMinute,
		CORSOrigins:    cfg.Server.CORSOrigins,
	}, dbPinger, redisPinger, log)

	port := strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", port, "model", cfg.Gemini.Model)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// pgxPoolPinger adapts pgxpool.Pool to the health check pinger.
type pgxPoolPinger struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *pgxPoolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
