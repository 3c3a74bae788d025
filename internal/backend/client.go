// Package backend is the HTTP client for the storefront API. Calls are
// context-aware and fallible; a 404 on the profile lookup is surfaced as
// domain.ErrNotFound so callers can tell "no record" apart from a transport
// failure. The client itself never retries; retrying is a caller decision.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient accepts a nil httpClient, in which case a client without a
// timeout is used; cancellation comes from the request context.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

func (c *Client) LookupProfile(ctx context.Context, telegramID int64) (*domain.Profile, error) {
	var p domain.Profile
	err := c.getJSON(ctx, "/api/users/"+strconv.FormatInt(telegramID, 10), nil, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpsertProfile(ctx context.Context, telegramID int64, name, phone string, language domain.Language) (*domain.Profile, error) {
	payload := struct {
		TelegramID  int64           `json:"telegram_id"`
		Name        string          `json:"name"`
		PhoneNumber string          `json:"phone_number"`
		Language    domain.Language `json:"language"`
	}{telegramID, name, phone, language}

	var p domain.Profile
	if err := c.postJSON(ctx, "/api/users", payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateOrder(ctx context.Context, userID int64, items []domain.OrderItemInput, comment string) (*domain.Order, error) {
	payload := struct {
		UserID  int64                   `json:"user_id"`
		Items   []domain.OrderItemInput `json:"items"`
		Comment string                  `json:"comment,omitempty"`
	}{userID, items, comment}

	var o domain.Order
	if err := c.postJSON(ctx, "/api/orders", payload, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) OrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	var orders []domain.Order
	err := c.getJSON(ctx, "/api/orders/user/"+strconv.FormatInt(userID, 10), nil, &orders)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.getJSON(ctx, "/api/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// Products lists the catalog, filtered by category when categoryID > 0.
func (c *Client) Products(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	var query url.Values
	if categoryID > 0 {
		query = url.Values{"category_id": []string{strconv.FormatInt(categoryID, 10)}}
	}

	var products []domain.Product
	if err := c.getJSON(ctx, "/api/products", query, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("backend: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("backend: %s %s: %w", req.Method, req.URL.Path, domain.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("backend returned error status",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return fmt.Errorf("backend: %s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: %s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
