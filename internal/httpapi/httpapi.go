package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
	"github.com/nurilloh-an/telegram-mini-app/internal/observability"
)

//go:generate mockgen -source=httpapi.go -destination=httpapi_mock_test.go -package=httpapi

// Store is the database surface the API needs.
type Store interface {
	UpsertUser(ctx context.Context, telegramID int64, name, phone string, language domain.Language) (*domain.Profile, error)
	UserByTelegramID(ctx context.Context, telegramID int64) (*domain.Profile, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	Products(ctx context.Context, categoryID int64) ([]domain.Product, error)
	CreateOrder(ctx context.Context, userID int64, items []domain.OrderItemInput, comment string) (*domain.Order, error)
	OrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	Orders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
}

// Catalog is the read-through cache in front of Store for listings.
type Catalog interface {
	Products(categoryID int64) ([]domain.Product, bool)
	SetProducts(categoryID int64, products []domain.Product)
	Categories() ([]domain.Category, bool)
	SetCategories(categories []domain.Category)
}

// Publisher emits an event after an order is created. Publish failures are
// logged, not surfaced: the order is already committed.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
}

type Server struct {
	store     Store
	catalog   Catalog
	publisher Publisher
	adminIDs  map[int64]struct{}
	router    chi.Router
	logger    *zap.Logger
	metrics   observability.Metrics
}

func New(store Store, catalog Catalog, publisher Publisher, adminIDs []int64, logger *zap.Logger, metrics observability.Metrics) *Server {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	s := &Server{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		adminIDs:  admins,
		logger:    logger,
		metrics:   metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(ServerTimingApp(s.metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", s.upsertUser)
		r.Get("/users/{telegram_id}", s.getUser)
		r.Get("/categories", s.listCategories)
		r.Get("/products", s.listProducts)
		r.Post("/orders", s.createOrder)
		r.Get("/orders", s.listOrders)
		r.Get("/orders/user/{user_id}", s.listUserOrders)
		r.Patch("/orders/{id}", s.updateOrderStatus)
	})

	s.router = r
}

type upsertUserRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone_number"`
	Language   string `json:"language"`
}

func (s *Server) upsertUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TelegramID == 0 {
		http.Error(w, "telegram_id is required", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	phone := domain.NormalizePhone(req.Phone)
	if phone == "" {
		http.Error(w, "phone_number is required", http.StatusBadRequest)
		return
	}
	lang, ok := domain.ParseLanguage(req.Language)
	if !ok {
		lang = domain.LanguageUz
	}

	profile, err := s.store.UpsertUser(r.Context(), req.TelegramID, req.Name, phone, lang)
	if err != nil {
		s.logger.Error("user upsert failed", zap.Int64("telegram_id", req.TelegramID), zap.Error(err))
		http.Error(w, "service error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, profile)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	telegramID, err := strconv.ParseInt(chi.URLParam(r, "telegram_id"), 10, 64)
	if err != nil {
		http.Error(w, "bad telegram_id", http.StatusBadRequest)
		return
	}

	profile, err := s.store.UserByTelegramID(r.Context(), telegramID)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "no user with this telegram id", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("user lookup failed", zap.Int64("telegram_id", telegramID), zap.Error(err))
		http.Error(w, "service error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, profile)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if cats, ok := s.catalog.Categories(); ok {
		cacheMs := sinceMs(start)
		s.metrics.IncCacheHit()
		s.metrics.ObserveCatalog("cache", cacheMs, 0)
		setSourceHeaders(w, "cache", cacheMs, 0)
		writeJSON(w, cats)
		return
	}
	cacheMs := sinceMs(start)
	s.metrics.IncCacheMiss()

	dbStart := time.Now()
	cats, err := s.store.Categories(r.Context())
	dbMs := sinceMs(dbStart)
	if err != nil {
		s.logger.Error("category listing failed", zap.Error(err))
		http.Error(w, "service error", http.StatusInternalServerError)
		return
	}
	s.catalog.SetCategories(cats)
	s.metrics.ObserveCatalog("db", cacheMs, dbMs)
	setSourceHeaders(w, "db", cacheMs, dbMs)
	writeJSON(w, cats)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			http.Error(w, "bad category_id", http.StatusBadRequest)
			return
		}
		categoryID = id
	}

	start := time.Now()
	if products, ok := s.catalog.Products(categoryID); ok {
		cacheMs := sinceMs(start)
		s.metrics.IncCacheHit()
		s.metrics.ObserveCatalog("cache", cacheMs, 0)
		setSourceHeaders(w, "cache", cacheMs, 0)
		writeJSON(w, products)
		return
	}
	cacheMs := sinceMs(start)
	s.metrics.IncCacheMiss()

	dbStart := time.Now()
	products, err := s.store.Products(r.Context(), categoryID)
	dbMs := sinceMs(dbStart)
	if err != nil {
		s.logger.Error("product listing failed", zap.Int64("category_id", categoryID), zap.Error(err))
		http.Error(w, "service error", http.StatusInternalServerError)
		return
	}
	s.catalog.SetProducts(categoryID, products)
	s.metrics.ObserveCatalog("db", cacheMs, dbMs)
	setSourceHeaders(w, "db", cacheMs, dbMs)
	writeJSON(w, products)
}

type createOrderRequest struct {
	UserID  int64                   `json:"user_id"`
	Items   []domain.OrderItemInput `json:"items"`
	Comment string                  `json:"comment"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if len(req.Items) == 0 {
		http.Error(w, "items are required", http.StatusBadRequest)
		return
	}
	for _, it := range req.Items {
		if it.ProductID == 0 || it.Quantity < 1 {
			http.Error(w, "each item needs product_id and quantity >= 1", http.StatusBadRequest)
			return
		}
	}

	order, err := s.store.CreateOrder(r.Context(), req.UserID, req.Items, strings.TrimSpace(req.Comment))
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "unknown product in order", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logger.Error("order creation failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		http.Error(w, "service error", http.StatusInternalServerError)
		return
	}

	// Best effort: the order is committed, a lost event only delays the
	// admin notification.
	if err := s.publisher.PublishOrderCreated(r.Context(), order); err != nil {
		s.logger.Warn("order event publish failed", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	writeJSONStatus(w, http.StatusCreated, order)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		http.Error(w, "admin only", http.StatusForbidden)
		return
	}

	status := domain.OrderStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.OrderPending, domain.OrderCompleted:
	default:
		http.Error(w, "bad status", http.StatusBadRequest)
		return
	}

	orders, err := s.store.Orders(r.Context(), status)
	if err != nil {
		s.logger.Error("order listing failed", zap.Error(err))
		http.Error(w, "service error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orders)
}

func (s *Server) listUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		http.Error(w, "bad user_id", http.StatusBadRequest)
		return
	}

	orders, err := s.store.OrdersByUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("user order listing failed", zap.Int64("user_id", userID), zap.Error(err))
		http.Error(w, "service error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orders)
}

type updateOrderRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		http.Error(w, "admin only", http.StatusForbidden)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad order id", http.StatusBadRequest)
		return
	}

	var req updateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Status {
	case domain.OrderPending, domain.OrderCompleted:
	default:
		http.Error(w, "bad status", http.StatusBadRequest)
		return
	}

	order, err := s.store.UpdateOrderStatus(r.Context(), id, req.Status)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "no order with this id", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("order status update failed", zap.Int64("order_id", id), zap.Error(err))
		http.Error(w, "service error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, order)
}

// isAdmin trusts the X-Telegram-User-Id header against the configured
// allow-list. The API sits behind the bot infrastructure, not the open
// internet.
func (s *Server) isAdmin(r *http.Request) bool {
	id, err := strconv.ParseInt(r.Header.Get("X-Telegram-User-Id"), 10, 64)
	if err != nil {
		return false
	}
	_, ok := s.adminIDs[id]
	return ok
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return false
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

func setSourceHeaders(w http.ResponseWriter, source string, cacheMs, dbMs float64) {
	observability.AppendServerTiming(w, "cache", cacheMs, "")
	observability.AppendServerTiming(w, "db", dbMs, "")
	observability.AppendServerTiming(w, "source", 0, source)
	w.Header().Set("X-Source", source)
	observability.SetIfPos(w, "X-Cache-Time", cacheMs)
	observability.SetIfPos(w, "X-DB-Time", dbMs)
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
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

func (s *Server) Handler() http.Handler { return s.router }
