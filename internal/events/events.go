// Package events defines the order lifecycle events exchanged over Kafka
// between the API and the notifier.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
)

// OrderCreated is published once per committed order. Item snapshots ride
// along so the notifier does not need a database connection.
type OrderCreated struct {
	OrderID    int64              `json:"order_id"`
	UserID     int64              `json:"user_id"`
	TotalPrice int64              `json:"total_price"`
	Comment    string             `json:"comment,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	Items      []OrderCreatedItem `json:"items"`
}

type OrderCreatedItem struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	TotalPrice  int64  `json:"total_price"`
}

func NewOrderCreated(o *domain.Order) OrderCreated {
	ev := OrderCreated{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		Comment:    o.Comment,
		CreatedAt:  o.CreatedAt,
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, OrderCreatedItem{
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			TotalPrice:  it.TotalPrice,
		})
	}
	return ev
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Publisher writes order events to the topic, keyed by order id so one
// order's events stay on one partition.
type Publisher struct {
	writer writer
	logger *zap.Logger
}

func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

func (p *Publisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	value, err := json.Marshal(NewOrderCreated(order))
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(strconv.FormatInt(order.ID, 10)),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order event: %w", err)
	}

	p.logger.Debug("order event published", zap.Int64("order_id", order.ID))
	return nil
}

func (p *Publisher) Close() error {
	if c, ok := p.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
