package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/cache"
	"github.com/nurilloh-an/telegram-mini-app/internal/config"
	"github.com/nurilloh-an/telegram-mini-app/internal/database"
	"github.com/nurilloh-an/telegram-mini-app/internal/events"
	"github.com/nurilloh-an/telegram-mini-app/internal/httpapi"
	"github.com/nurilloh-an/telegram-mini-app/internal/kafka"
	"github.com/nurilloh-an/telegram-mini-app/internal/observability"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := database.Connect(ctx, cfg.DSN())
	defer pool.Close()

	repo := database.New(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Fatal("schema setup failed", zap.Error(err))
	}

	catalog, err := cache.New(cfg.Cache.Size)
	if err != nil {
		logger.Fatal("cache init failed", zap.Error(err))
	}
	catalog.Warm(ctx, repo, cfg.Cache.WarmWorkers)

	if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, 1, 1, logger); err != nil {
		logger.Warn("kafka topic setup failed, events may be dropped", zap.Error(err))
	}
	publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	defer publisher.Close()

	metrics := observability.NewInmem(256)
	server := httpapi.New(repo, catalog, publisher, cfg.AdminIDs, logger, metrics)

	logger.Info("api listening", zap.String("addr", cfg.APIAddr))
	if err := server.ListenAndServe(ctx, cfg.APIAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("api stopped")
}
