package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-logistics/backoffice/internal/app"
	"github.com/meridian-logistics/backoffice/internal/gateway"
	"github.com/meridian-logistics/backoffice/internal/platform/cache"
	"github.com/meridian-logistics/backoffice/internal/query"
	"github.com/meridian-logistics/backoffice/internal/resources"
	"github.com/meridian-logistics/backoffice/internal/session"
	"github.com/meridian-logistics/backoffice/jobs"
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

	sessions := session.NewStore(redisClient, cfg.SessionTTL)
	if err := sessions.Refresh(ctx); err != nil {
		logger.Warn("load session", slog.Any("error", err))
	}

	gw, err := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.UpstreamBaseURL,
		Timeout:     cfg.UpstreamTimeout,
		Credentials: sessions,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("init gateway", slog.Any("error", err))
		os.Exit(1)
	}

	orch, err := query.New(query.Config{
		Gateway:   gw,
		CacheSize: cfg.CacheSize,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("init orchestrator", slog.Any("error", err))
		os.Exit(1)
	}

	refreshJob := jobs.NewRefreshJob(orch, logger)

	// Keep the hottest public lists warm overnight.
	warmEvents, err := jobs.NewCacheRefreshTask(query.Refresh{
		Resource: resources.Events.String(),
		Tier:     string(query.TierLong),
		Open:     true,
	})
	if err != nil {
		logger.Error("build warm task", slog.Any("error", err))
		os.Exit(1)
	}
	warmOffers, err := jobs.NewCacheRefreshTask(query.Refresh{
		Resource: resources.JobOffers.String(),
		Tier:     string(query.TierLong),
		Open:     true,
	})
	if err != nil {
		logger.Error("build warm task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCacheRefresh, Handler: refreshJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmEvents, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: warmOffers, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
