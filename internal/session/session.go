// Package session composes the storefront client: identity resolution,
// the cart, checkout and order history, exposed over a small HTTP gateway
// the mini-app frontend talks to.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/backend"
	"github.com/nurilloh-an/telegram-mini-app/internal/cart"
	"github.com/nurilloh-an/telegram-mini-app/internal/checkout"
	"github.com/nurilloh-an/telegram-mini-app/internal/guestid"
	"github.com/nurilloh-an/telegram-mini-app/internal/history"
	"github.com/nurilloh-an/telegram-mini-app/internal/httpapi"
	"github.com/nurilloh-an/telegram-mini-app/internal/identity"
	"github.com/nurilloh-an/telegram-mini-app/internal/localstore"
	"github.com/nurilloh-an/telegram-mini-app/internal/observability"
)

type Session struct {
	resolver *identity.Resolver
	cart     *cart.Store
	checkout *checkout.Coordinator
	history  *history.List
	backend  *backend.Client
	native   *identity.NativeSession
	router   chi.Router
	logger   *zap.Logger
	metrics  observability.Metrics
}

type Options struct {
	BackendURL string
	StateDir   string
	GuestID    int64 // preferred fallback id for guest allocation
	Native     *identity.NativeSession
	Identity   identity.Config
}

// New wires the whole client stack against one backend and one state
// directory.
func New(opts Options, logger *zap.Logger, metrics observability.Metrics) (*Session, error) {
	store, err := localstore.New(opts.StateDir, logger)
	if err != nil {
		return nil, err
	}

	client := backend.NewClient(opts.BackendURL, &http.Client{Timeout: 15 * time.Second}, logger)
	guests := guestid.New(store, opts.GuestID, logger)
	resolver := identity.NewResolver(client, store, guests, opts.Identity, logger, metrics)
	cartStore := cart.NewStore()
	orderList := history.NewList(client, resolver, logger)
	coordinator := checkout.NewCoordinator(client, cartStore, resolver, orderList, logger, metrics)

	s := &Session{
		resolver: resolver,
		cart:     cartStore,
		checkout: coordinator,
		history:  orderList,
		backend:  client,
		native:   opts.Native,
		logger:   logger,
		metrics:  metrics,
	}
	s.routes()
	return s, nil
}

// Bootstrap resolves the identity once at startup.
func (s *Session) Bootstrap(ctx context.Context) identity.Status {
	return s.resolver.Bootstrap(ctx, s.native)
}

func (s *Session) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpapi.ServerTimingApp(s.metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/profile", s.getProfile)
	r.Put("/profile", s.saveProfile)
	r.Post("/profile/refresh", s.refreshProfile)

	r.Get("/cart", s.getCart)
	r.Post("/cart/items", s.addCartItem)
	r.Put("/cart/items/{product_id}", s.setCartQuantity)
	r.Delete("/cart/items/{product_id}", s.removeCartItem)
	r.Delete("/cart", s.clearCart)

	r.Post("/checkout", s.submitOrder)
	r.Get("/orders", s.listOrders)

	r.Get("/catalog/categories", s.listCategories)
	r.Get("/catalog/products", s.listProducts)

	s.router = r
}

func (s *Session) Handler() http.Handler { return s.router }

func (s *Session) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	return srv.ListenAndServe()
}
