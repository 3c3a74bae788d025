package main

import (
	"context"
	"os/signal"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/config"
	"github.com/nurilloh-an/telegram-mini-app/internal/kafka"
	"github.com/nurilloh-an/telegram-mini-app/internal/notify"
	"github.com/nurilloh-an/telegram-mini-app/internal/observability"
	"github.com/nurilloh-an/telegram-mini-app/internal/pkg/breaker"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.ValidateNotifier(); err != nil {
		logger.Fatal("notifier config invalid", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, 1, 1, logger); err != nil {
		logger.Fatal("kafka topic setup failed", zap.Error(err))
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		GroupID:  cfg.Kafka.Group,
		Topic:    cfg.Kafka.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	sender := notify.NewTelegramSender(cfg.Telegram.BotToken, nil, logger)
	handler := notify.NewHandler(
		sender,
		cfg.Telegram.AdminChatIDs,
		breaker.New(cfg.Breaker),
		cfg.Retry,
		logger,
		observability.NewInmem(256),
	)

	consumer := kafka.NewConsumer(handler, reader, cfg.Kafka.Workers, logger)
	consumer.Start(ctx)

	logger.Info("notifier stopped")
}
