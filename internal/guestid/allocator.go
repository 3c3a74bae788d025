// Package guestid fabricates stable numeric identities for customers who
// open the storefront outside a Telegram session. Identities are keyed by
// normalized phone digits and persisted, so the same phone resolves to the
// same identity across restarts on this device.
package guestid

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
)

// Fabricated ids are drawn from the same nine-digit range regardless of
// device, so collisions across devices are possible. Uniqueness is only
// enforced against the local map.
const (
	idMin  = 100000000
	idSpan = 900000000
)

var ErrEmptyPhone = errors.New("phone number has no digits")

type store interface {
	GuestMap() map[string]int64
	SaveGuestMap(map[string]int64) error
}

type Allocator struct {
	mu         sync.Mutex
	store      store
	fallbackID int64
	rnd        *rand.Rand
	logger     *zap.Logger
}

func New(store store, fallbackID int64, logger *zap.Logger) *Allocator {
	return &Allocator{
		store:      store,
		fallbackID: fallbackID,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:     logger,
	}
}

// GetForPhone is a pure lookup: the allocated identity for the phone, if any.
func (a *Allocator) GetForPhone(phone string) (int64, bool) {
	normalized := domain.NormalizePhone(phone)
	if normalized == "" {
		return 0, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.store.GuestMap()[normalized]
	return id, ok
}

// AssignForPhone is idempotent: an existing allocation is returned
// unchanged. A new identity prefers the configured fallback value when it is
// unused, then draws from the fixed range retrying on collision. The updated
// map is persisted before the identity is handed out.
func (a *Allocator) AssignForPhone(phone string) (int64, error) {
	normalized := domain.NormalizePhone(phone)
	if normalized == "" {
		return 0, ErrEmptyPhone
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.store.GuestMap()
	if id, ok := m[normalized]; ok {
		return id, nil
	}

	id := a.generate(m)
	m[normalized] = id
	if err := a.store.SaveGuestMap(m); err != nil {
		return 0, fmt.Errorf("persist guest id map: %w", err)
	}

	a.logger.Info("allocated guest identity",
		zap.String("phone", normalized),
		zap.Int64("telegram_id", id),
	)
	return id, nil
}

func (a *Allocator) generate(m map[string]int64) int64 {
	used := make(map[int64]bool, len(m))
	for _, v := range m {
		used[v] = true
	}

	if a.fallbackID != 0 && !used[a.fallbackID] {
		return a.fallbackID
	}

	for {
		candidate := idMin + a.rnd.Int63n(idSpan)
		if !used[candidate] {
			return candidate
		}
	}
}
