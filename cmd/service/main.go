// cmd/service/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"good-first-issues/internal/api"
	"good-first-issues/internal/cache"
	"good-first-issues/internal/config"
	"good-first-issues/internal/database"
	"good-first-issues/internal/github"
	"good-first-issues/internal/queue"
	"good-first-issues/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration; the process refuses to start on invalid config
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded", "env", cfg.Env, "app", cfg.AppName, "version", cfg.AppVersion)

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Database connection and migrations
	dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied")

	store := database.NewPostgres(dbpool)

	// 5. Redis: the job queue and the read-API cache share the connection config
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr(), Password: cfg.RedisPassword}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr(), Password: cfg.RedisPassword})
	defer rdb.Close()
	responseCache := cache.New(rdb, cfg.CacheTTL, logger)

	// 6. Application components
	ghClient := github.NewClient(cfg.GithubToken, logger)
	appSyncer := syncer.NewSyncer(store, ghClient, logger)
	dispatcher := queue.NewDispatcher(queueClient, cfg.Repositories, logger)

	worker := queue.NewWorker(redisOpt, appSyncer, logger)
	if err := worker.Start(); err != nil {
		return fmt.Errorf("failed to start queue worker: %w", err)
	}
	defer worker.Shutdown()
	logger.Info("Queue worker started")

	// 7. Periodic statistics rollup
	go runStatsLoop(ctx, store, cfg.StatsInterval, logger)

	// 8. HTTP server
	router := api.NewRouter(store, dispatcher, responseCache, cfg.TriggerSecret, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 9. Wait for shutdown signal or server failure
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	logger.Info("Server exited")

	return nil
}

// runStatsLoop recomputes the reporting rollup on a fixed interval until the
// context is cancelled.
func runStatsLoop(ctx context.Context, store database.Store, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := store.RefreshStatistics(ctx); err != nil {
				logger.Error("Failed to refresh statistics", "error", err)
			} else {
				logger.Debug("Statistics refreshed")
			}
		case <-ctx.Done():
			return
		}
	}
}

func runMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
