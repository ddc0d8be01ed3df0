package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/icarus-art/icarus/internal/app"
	"github.com/icarus-art/icarus/internal/auth"
	jobmetrics "github.com/icarus-art/icarus/internal/jobs"
	"github.com/icarus-art/icarus/internal/platform/cache"
	"github.com/icarus-art/icarus/internal/platform/db"
	"github.com/icarus-art/icarus/internal/shared"
	"github.com/icarus-art/icarus/internal/waitlist"
	"github.com/icarus-art/icarus/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	authService := auth.NewService(auth.NewRepository(pool), sessionManager, logger)
	waitlistService := waitlist.NewService(waitlist.NewRepository(pool))

	purgeJob := jobs.NewSessionPurgeJob(authService, logger, metrics)
	notifyJob := jobs.NewMarkNotifiedJob(waitlistService, logger, metrics)

	purgeTask, err := jobs.NewSessionPurgeTask(jobs.SessionPurgePayload{})
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionsPurge, Handler: purgeJob.Handle},
			{Type: jobs.TaskWaitlistMarkNotified, Handler: notifyJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
