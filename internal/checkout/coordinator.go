// Package checkout submits the current cart as an order under the resolved
// identity. One submission at a time: repeated taps on the submit button
// must not create duplicate orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
	"github.com/nurilloh-an/telegram-mini-app/internal/observability"
)

//go:generate mockgen -source internal/checkout/coordinator.go -destination=internal/checkout/coordinator_mock_test.go -package=checkout

type Backend interface {
	CreateOrder(ctx context.Context, userID int64, items []domain.OrderItemInput, comment string) (*domain.Order, error)
}

type Cart interface {
	Items() []domain.CartItem
	Clear()
}

type Profiles interface {
	Current() (*domain.Profile, bool)
}

type History interface {
	Record(*domain.Order)
}

var (
	// ErrEmptyCart signals a no-op submit: no backend call was made and no
	// state changed.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNeedsProfile directs the caller to route the user to profile
	// capture before checking out.
	ErrNeedsProfile = errors.New("no resolved profile")
	// ErrSubmitInFlight rejects a submit while a prior one is outstanding.
	ErrSubmitInFlight = errors.New("order submission already in progress")
)

type Coordinator struct {
	backend  Backend
	cart     Cart
	profiles Profiles
	history  History
	logger   *zap.Logger
	metrics  observability.Metrics

	submitting atomic.Bool
}

func NewCoordinator(backend Backend, cart Cart, profiles Profiles, history History, logger *zap.Logger, metrics observability.Metrics) *Coordinator {
	return &Coordinator{
		backend:  backend,
		cart:     cart,
		profiles: profiles,
		history:  history,
		logger:   logger,
		metrics:  metrics,
	}
}

// Submit snapshots the cart and creates an order under the resolved
// profile's record id. On success the cart is cleared and the order is
// recorded in history; on failure the cart is left bit-for-bit intact and
// the error is retryable.
func (c *Coordinator) Submit(ctx context.Context, comment string) (*domain.Order, error) {
	items := c.cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	profile, ok := c.profiles.Current()
	if !ok {
		return nil, ErrNeedsProfile
	}

	if !c.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInFlight
	}
	defer c.submitting.Store(false)

	payload := make([]domain.OrderItemInput, 0, len(items))
	for _, it := range items {
		payload = append(payload, domain.OrderItemInput{ProductID: it.Product.ID, Quantity: it.Quantity})
	}

	start := time.Now()
	order, err := c.backend.CreateOrder(ctx, profile.ID, payload, comment)
	durMs := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		c.metrics.ObserveCheckout(durMs, false)
		c.logger.Error("order submission failed",
			zap.Int64("user_id", profile.ID),
			zap.Int("items", len(payload)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create order: %w", err)
	}

	c.cart.Clear()
	c.history.Record(order)

	c.metrics.ObserveCheckout(durMs, true)
	c.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", profile.ID),
		zap.Int64("total_price", order.TotalPrice),
		zap.Int("items", len(order.Items)),
	)
	return order, nil
}
