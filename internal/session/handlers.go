package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/checkout"
	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
	"github.com/nurilloh-an/telegram-mini-app/internal/identity"
)

type statusResponse struct {
	Phase   string          `json:"phase"`
	Reason  string          `json:"reason,omitempty"`
	Error   string          `json:"error,omitempty"`
	Profile *domain.Profile `json:"profile,omitempty"`
	Form    identity.Form   `json:"form"`
	Dirty   bool            `json:"dirty"`
	Native  bool            `json:"native"`
}

func newStatusResponse(st identity.Status) statusResponse {
	resp := statusResponse{
		Phase:   st.Phase.String(),
		Profile: st.Profile,
		Form:    st.Form,
		Dirty:   st.Dirty,
		Native:  st.Native,
	}
	if st.Reason != identity.ReasonNone {
		resp.Reason = st.Reason.String()
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	return resp
}

func (s *Session) getProfile(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStatusResponse(s.resolver.Status()))
}

type saveProfileRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Language string `json:"language"`
}

func (s *Session) saveProfile(w http.ResponseWriter, r *http.Request) {
	var req saveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	lang, ok := domain.ParseLanguage(req.Language)
	if !ok {
		lang = s.resolver.Status().Form.Language
	}
	s.resolver.UpdateForm(identity.Form{
		Name:     req.Name,
		Phone:    req.Phone,
		Language: lang,
	})

	_, err := s.resolver.Save(r.Context())
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"field": vErr.Field, "reason": vErr.Reason,
		})
		return
	case errors.Is(err, identity.ErrSaveInFlight):
		http.Error(w, "save already in progress", http.StatusConflict)
		return
	case errors.Is(err, identity.ErrSuperseded):
		http.Error(w, "superseded by a newer attempt", http.StatusConflict)
		return
	case err != nil:
		s.logger.Error("profile save failed", zap.Error(err))
		http.Error(w, "save failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, newStatusResponse(s.resolver.Status()))
}

func (s *Session) refreshProfile(w http.ResponseWriter, r *http.Request) {
	st := s.resolver.Bootstrap(r.Context(), s.native)
	writeJSON(w, http.StatusOK, newStatusResponse(st))
}

type cartResponse struct {
	Items      []domain.CartItem `json:"items"`
	TotalPrice int64             `json:"total_price"`
}

func (s *Session) writeCart(w http.ResponseWriter) {
	st := s.cart.Snapshot()
	writeJSON(w, http.StatusOK, cartResponse{
		Items:      st.Items,
		TotalPrice: st.Total(),
	})
}

func (s *Session) getCart(w http.ResponseWriter, _ *http.Request) {
	s.writeCart(w)
}

func (s *Session) addCartItem(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.ID == 0 {
		http.Error(w, "bad product", http.StatusBadRequest)
		return
	}
	s.cart.Add(p)
	s.writeCart(w)
}

type setQuantityRequest struct {
	Quantity int             `json:"quantity"`
	Product  *domain.Product `json:"product,omitempty"`
}

func (s *Session) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil {
		http.Error(w, "bad product_id", http.StatusBadRequest)
		return
	}

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	// Quantity <= 0 is a removal regardless of whether the product is known.
	if req.Quantity <= 0 {
		s.cart.Remove(productID)
		s.writeCart(w)
		return
	}

	product, ok := s.cartProduct(productID, req.Product)
	if !ok {
		http.Error(w, "product not in cart", http.StatusNotFound)
		return
	}
	s.cart.SetQuantity(product, req.Quantity)
	s.writeCart(w)
}

// cartProduct finds the product payload for a quantity update: the entry
// already in the cart, or the product supplied in the request body when
// setting a quantity for an item not present yet.
func (s *Session) cartProduct(productID int64, fromBody *domain.Product) (domain.Product, bool) {
	for _, it := range s.cart.Items() {
		if it.Product.ID == productID {
			return it.Product, true
		}
	}
	if fromBody != nil && fromBody.ID == productID {
		return *fromBody, true
	}
	return domain.Product{}, false
}

func (s *Session) removeCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil {
		http.Error(w, "bad product_id", http.StatusBadRequest)
		return
	}
	s.cart.Remove(productID)
	s.writeCart(w)
}

func (s *Session) clearCart(w http.ResponseWriter, _ *http.Request) {
	s.cart.Clear()
	s.writeCart(w)
}

type checkoutRequest struct {
	Comment string `json:"comment"`
}

func (s *Session) submitOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
	}

	order, err := s.checkout.Submit(r.Context(), strings.TrimSpace(req.Comment))
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		http.Error(w, "cart is empty", http.StatusBadRequest)
		return
	case errors.Is(err, checkout.ErrNeedsProfile):
		http.Error(w, "profile required before checkout", http.StatusPreconditionFailed)
		return
	case errors.Is(err, checkout.ErrSubmitInFlight):
		http.Error(w, "checkout already in progress", http.StatusConflict)
		return
	case err != nil:
		s.logger.Error("checkout failed", zap.Error(err))
		http.Error(w, "checkout failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

func (s *Session) listOrders(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Refresh(r.Context()); err != nil {
		// Serve what we have; the local list still holds orders recorded
		// by recent checkouts.
		s.logger.Warn("serving stale order history", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, s.history.Orders())
}

func (s *Session) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.backend.Categories(r.Context())
	if err != nil {
		s.logger.Error("category fetch failed", zap.Error(err))
		http.Error(w, "backend unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Session) listProducts(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "bad category_id", http.StatusBadRequest)
			return
		}
		categoryID = id
	}

	products, err := s.backend.Products(r.Context(), categoryID)
	if err != nil {
		s.logger.Error("product fetch failed", zap.Error(err))
		http.Error(w, "backend unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
