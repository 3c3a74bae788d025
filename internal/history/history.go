// Package history keeps the session's view of past orders: a newest-first
// list fed by checkout on success and refreshed from the backend on demand.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
)

//go:generate mockgen -source=history.go -destination=history_mock_test.go -package=history

// Backend lists a user's orders.
type Backend interface {
	OrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error)
}

// Profiles reports the currently resolved profile, if any.
type Profiles interface {
	Current() (*domain.Profile, bool)
}

// List holds orders newest-first, deduplicated by order id.
type List struct {
	mu       sync.Mutex
	orders   []domain.Order
	backend  Backend
	profiles Profiles
	logger   *zap.Logger
}

func NewList(backend Backend, profiles Profiles, logger *zap.Logger) *List {
	return &List{
		backend:  backend,
		profiles: profiles,
		logger:   logger,
	}
}

// Record inserts a freshly created order at the head of the list. A
// duplicate id replaces the stored copy in place.
func (l *List) Record(order *domain.Order) {
	if order == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.orders {
		if l.orders[i].ID == order.ID {
			l.orders[i] = *order
			return
		}
	}
	l.orders = append([]domain.Order{*order}, l.orders...)
}

// Refresh replaces the list with the backend's view for the resolved
// profile. Without a profile there is nothing to fetch and the list is
// left empty.
func (l *List) Refresh(ctx context.Context) error {
	profile, ok := l.profiles.Current()
	if !ok {
		l.mu.Lock()
		l.orders = nil
		l.mu.Unlock()
		return nil
	}

	orders, err := l.backend.OrdersByUser(ctx, profile.ID)
	if err != nil {
		l.logger.Warn("order history refresh failed",
			zap.Int64("user_id", profile.ID),
			zap.Error(err),
		)
		return fmt.Errorf("orders by user: %w", err)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	l.mu.Lock()
	l.orders = orders
	l.mu.Unlock()
	return nil
}

// Orders returns a copy of the list, newest first.
func (l *List) Orders() []domain.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Order, len(l.orders))
	copy(out, l.orders)
	return out
}
