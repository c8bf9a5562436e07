package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/forgespace/notify/internal/api"
	"github.com/forgespace/notify/internal/clock"
	"github.com/forgespace/notify/internal/config"
	"github.com/forgespace/notify/internal/db"
	"github.com/forgespace/notify/internal/email"
	"github.com/forgespace/notify/internal/lock"
	"github.com/forgespace/notify/internal/metrics"
	"github.com/forgespace/notify/internal/queue"
	"github.com/forgespace/notify/internal/ratelimiter"
	"github.com/forgespace/notify/internal/repository"
	"github.com/forgespace/notify/internal/sender"
	"github.com/forgespace/notify/internal/service"
	"github.com/forgespace/notify/internal/worker"
)

func main() {
	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.RunMigrationsOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("database migrations applied")
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	clk := clock.Real{}
	repo := repository.NewPgJobRepository(pool)
	q := queue.New(repo, clk, logger, queue.Hooks{OnEnqueued: m.ObserveEnqueued})
	svc := service.NewNotificationService(q, logger)

	renderer, err := email.NewRenderer(cfg.AppBaseURL)
	if err != nil {
		logger.Fatal("failed to parse email templates", zap.Error(err))
	}
	if cfg.Email.APIKey == "" {
		logger.Warn("EMAIL_API_KEY is empty; every send will be rejected by the provider")
	}
	transport := email.NewAPITransport(
		cfg.Email.APIBaseURL, cfg.Email.APIKey, cfg.Email.From,
		cfg.Email.Timeout, ratelimiter.New(cfg.Email.RateLimit),
	)
	dispatcher := sender.NewDispatcher(transport, renderer, cfg.Email.ReplyTo)
	processor := worker.NewProcessor(repo, dispatcher, clk, logger, worker.MetricHooks{
		OnOutcome: m.ObserveOutcome,
	})

	// ---- run lock ----
	var locker lock.Locker = lock.Nop{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		locker = lock.NewRedisLocker(rdb)
		logger.Info("redis run lock enabled", zap.String("addr", cfg.Redis.Addr))
	}

	trigger := worker.NewTrigger(processor, q, locker, cfg.Redis.LockTTL, cfg.ProcessInterval, logger, worker.TriggerHooks{
		OnRun:   m.ObserveRun,
		OnStats: m.SetStatusCounts,
	})

	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	if cfg.ProcessorEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trigger.Run(workerCtx)
		}()
	} else {
		logger.Info("in-process trigger disabled; use POST /api/v1/jobs/process")
	}

	// ---- HTTP server ----
	router := api.NewRouter(api.Deps{
		Queue:         q,
		Service:       svc,
		Runner:        trigger,
		DB:            pool,
		Gatherer:      reg,
		AuthJWTSecret: cfg.AuthJWTSecret,
		Logger:        logger,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the ticker; a batch already running finishes recording outcomes.
	cancelWorkers()
	wg.Wait()

	logger.Info("server stopped cleanly")
}

// newLogger builds the production JSON logger at level, falling back to
// info for an unknown level name.
func newLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
