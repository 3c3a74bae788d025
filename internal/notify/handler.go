// Package notify turns order events into Telegram messages for the shop
// admins. Delivery is wrapped in a circuit breaker and per-chat retries so
// a flaky Bot API neither loses events nor hammers itself to death.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/config"
	"github.com/nurilloh-an/telegram-mini-app/internal/events"
	"github.com/nurilloh-an/telegram-mini-app/internal/observability"
	"github.com/nurilloh-an/telegram-mini-app/internal/pkg/breaker"
	"github.com/nurilloh-an/telegram-mini-app/internal/pkg/retry"
)

//go:generate mockgen -source=handler.go -destination=handler_mock_test.go -package=notify

// ErrNotify marks a delivery failure; the message stays uncommitted and is
// retried on the next fetch. Undecodable events are the opposite case: they
// are committed and skipped, since replaying garbage never helps.
var ErrNotify = errors.New("notification delivery failed")

type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type Handler struct {
	sender   Sender
	chatIDs  []int64
	breaker  *breaker.Breaker
	retryCfg config.Retry
	logger   *zap.Logger
	metrics  observability.Metrics
}

func NewHandler(sender Sender, chatIDs []int64, br *breaker.Breaker, retryCfg config.Retry, logger *zap.Logger, metrics observability.Metrics) *Handler {
	return &Handler{
		sender:   sender,
		chatIDs:  chatIDs,
		breaker:  br,
		retryCfg: retryCfg,
		logger:   logger,
		metrics:  metrics,
	}
}

func (h *Handler) Handle(ctx context.Context, msg kafkago.Message) error {
	var ev events.OrderCreated
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		h.logger.Warn("dropping malformed order event",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		// Returning nil commits the offset and skips the message.
		return nil
	}
	if ev.OrderID == 0 {
		h.logger.Warn("dropping order event without id", zap.Int64("offset", msg.Offset))
		return nil
	}

	if err := h.breaker.Allow(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotify, err)
	}

	text := FormatOrder(ev)
	start := time.Now()
	var failed []int64
	for _, chatID := range h.chatIDs {
		id := chatID
		err := retry.Do(ctx, h.retryCfg, func() error {
			return h.sender.Send(ctx, id, text)
		})
		if err != nil {
			failed = append(failed, id)
			h.logger.Error("admin notification failed",
				zap.Int64("order_id", ev.OrderID),
				zap.Int64("chat_id", id),
				zap.Error(err),
			)
		}
	}
	durMs := float64(time.Since(start).Microseconds()) / 1000.0

	if len(failed) > 0 {
		h.breaker.Failure()
		h.metrics.ObserveNotify(durMs, false)
		return fmt.Errorf("%w: %d of %d chats unreachable", ErrNotify, len(failed), len(h.chatIDs))
	}

	h.breaker.Success()
	h.metrics.ObserveNotify(durMs, true)
	h.logger.Info("order notification sent",
		zap.Int64("order_id", ev.OrderID),
		zap.Int("chats", len(h.chatIDs)),
	)
	return nil
}

// FormatOrder renders the admin-facing message text.
func FormatOrder(ev events.OrderCreated) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>New order #%d</b>\n", ev.OrderID)
	fmt.Fprintf(&b, "Customer: %d\n", ev.UserID)
	for _, it := range ev.Items {
		fmt.Fprintf(&b, "- %s x%d = %d so'm\n", it.ProductName, it.Quantity, it.TotalPrice)
	}
	fmt.Fprintf(&b, "Total: <b>%d so'm</b>", ev.TotalPrice)
	if ev.Comment != "" {
		fmt.Fprintf(&b, "\nComment: %s", ev.Comment)
	}
	return b.String()
}
