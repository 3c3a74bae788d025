// Package cart holds the session-scoped selection of products. State
// transitions are pure functions over an immutable value; the Store wrapper
// serializes mutation so concurrent handlers cannot interleave.
package cart

import (
	"sync"

	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
)

type Op uint8

const (
	OpAdd Op = iota
	OpRemove
	OpSetQuantity
	OpClear
)

type Action struct {
	Op        Op
	Product   domain.Product
	ProductID int64
	Quantity  int
}

// State is an insertion-ordered collection of items, unique by product id.
// Every stored quantity is >= 1.
type State struct {
	Items []domain.CartItem
}

// Total is the exact sum of price*quantity over all items.
func (s State) Total() int64 {
	var sum int64
	for _, it := range s.Items {
		sum += it.Product.Price * int64(it.Quantity)
	}
	return sum
}

// OrderItems snapshots the state into an order-creation request payload.
func (s State) OrderItems() []domain.OrderItemInput {
	out := make([]domain.OrderItemInput, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, domain.OrderItemInput{ProductID: it.Product.ID, Quantity: it.Quantity})
	}
	return out
}

// Apply is a pure reducer: the input state is never mutated.
func Apply(s State, a Action) State {
	switch a.Op {
	case OpAdd:
		for i, it := range s.Items {
			if it.Product.ID == a.Product.ID {
				next := cloneItems(s.Items)
				next[i].Quantity++
				return State{Items: next}
			}
		}
		next := cloneItems(s.Items)
		next = append(next, domain.CartItem{Product: a.Product, Quantity: 1})
		return State{Items: next}

	case OpRemove:
		return State{Items: withoutProduct(s.Items, a.ProductID)}

	case OpSetQuantity:
		if a.Quantity <= 0 {
			return State{Items: withoutProduct(s.Items, a.Product.ID)}
		}
		for i, it := range s.Items {
			if it.Product.ID == a.Product.ID {
				next := cloneItems(s.Items)
				next[i].Quantity = a.Quantity
				return State{Items: next}
			}
		}
		next := cloneItems(s.Items)
		next = append(next, domain.CartItem{Product: a.Product, Quantity: a.Quantity})
		return State{Items: next}

	case OpClear:
		return State{}
	}
	return s
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	next := make([]domain.CartItem, len(items))
	copy(next, items)
	return next
}

func withoutProduct(items []domain.CartItem, productID int64) []domain.CartItem {
	next := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		if it.Product.ID != productID {
			next = append(next, it)
		}
	}
	if len(next) == 0 {
		return nil
	}
	return next
}

// Store is the single mutation entry point for the one active cart.
type Store struct {
	mu    sync.Mutex
	state State
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Add(p domain.Product) {
	s.dispatch(Action{Op: OpAdd, Product: p})
}

func (s *Store) Remove(productID int64) {
	s.dispatch(Action{Op: OpRemove, ProductID: productID})
}

func (s *Store) SetQuantity(p domain.Product, quantity int) {
	s.dispatch(Action{Op: OpSetQuantity, Product: p, Quantity: quantity})
}

func (s *Store) Clear() {
	s.dispatch(Action{Op: OpClear})
}

func (s *Store) dispatch(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Apply(s.state, a)
}

// Snapshot returns a copy safe to read while mutation continues.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Items: cloneItems(s.state.Items)}
}

func (s *Store) Items() []domain.CartItem {
	return s.Snapshot().Items
}

func (s *Store) TotalPrice() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Total()
}
