package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/taskpulse/internal/app/migrate"
	"github.com/splax/taskpulse/internal/cache"
	httpx "github.com/splax/taskpulse/internal/http"
	"github.com/splax/taskpulse/internal/jobs"
	"github.com/splax/taskpulse/internal/repository"
	"github.com/splax/taskpulse/internal/repository/jsonfile"
	"github.com/splax/taskpulse/internal/repository/memory"
	"github.com/splax/taskpulse/internal/repository/postgres"
	"github.com/splax/taskpulse/internal/service/auth"
	"github.com/splax/taskpulse/internal/service/task"
	"github.com/splax/taskpulse/internal/ws"
	"github.com/splax/taskpulse/pkg/config"
	"github.com/splax/taskpulse/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var taskRepo repository.TaskRepository
	var userRepo repository.UserRepository

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.New()
		taskRepo, userRepo = store, store
	case config.StoreDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
		if err != nil {
			log.Error("failed to configure migrations", "error", err)
			os.Exit(1)
		}
		defer runner.Close()
		if err := runner.Ping(ctx); err != nil {
			log.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		if err := runner.Ensure(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		store := postgres.New(pool)
		taskRepo, userRepo = store, store
	default:
		store := jsonfile.New(cfg.DataDir)
		taskRepo, userRepo = store, store
	}

	var taskCache cache.Cache = cache.NewMemory()
	if addr := strings.TrimSpace(cfg.CacheRedisAddr); addr != "" {
		redisCache, err := cache.NewRedis(addr, cfg.CacheRedisPass, cfg.CacheRedisDB, log)
		if err != nil {
			log.Warn("redis cache unavailable, using memory cache", "error", err)
		} else {
			taskCache = redisCache
		}
	}
	defer taskCache.Close()

	queue := jobs.New(cfg.JobQueueSize, cfg.JobMaxAttempts, log)
	queue.Register(auth.WelcomeJobKind, func(ctx context.Context, job jobs.Job) error {
		log.Info("welcome email sent", "email", job.Payload["email"], "job_id", job.ID)
		return nil
	})
	go queue.Run(ctx)

	hub := ws.NewHub()

	authSvc := auth.New(userRepo, queue, log, cfg)
	taskSvc := task.New(taskRepo, taskCache, cfg.TaskCacheTTL, log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, authSvc, taskSvc, hub, limiter)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "store", cfg.StoreDriver)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
