package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-logistics/backoffice/internal/admin"
	"github.com/meridian-logistics/backoffice/internal/app"
	"github.com/meridian-logistics/backoffice/internal/authz"
	"github.com/meridian-logistics/backoffice/internal/gateway"
	"github.com/meridian-logistics/backoffice/internal/platform/cache"
	"github.com/meridian-logistics/backoffice/internal/query"
	"github.com/meridian-logistics/backoffice/internal/session"
	"github.com/meridian-logistics/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	authzStore := authz.NewStore()
	snap := sessions.Snapshot()
	authzStore.Refresh(snap.Identity, snap.Grants)

	gw, err := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.UpstreamBaseURL,
		Timeout:     cfg.UpstreamTimeout,
		Credentials: sessions,
		Notifier:    gateway.LogNotifier{Logger: logger},
		Logger:      logger,
	})
	if err != nil {
		logger.Error("init gateway", slog.Any("error", err))
		os.Exit(1)
	}

	refresher, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := refresher.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	orch, err := query.New(query.Config{
		Gateway:   gw,
		CacheSize: cfg.CacheSize,
		Refresher: refresher,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("init orchestrator", slog.Any("error", err))
		os.Exit(1)
	}

	adminHandler := admin.NewHandler(logger, orch, sessions, authz.Middleware{
		Store:  authzStore,
		Logger: logger,
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AdminHandler: adminHandler,
		JobHandler:   jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
