package domain

import (
	"strings"
	"time"
	"unicode"
)

// Language is the customer-facing UI language stored on the profile.
type Language string

const (
	LanguageUz Language = "uz"
	LanguageRu Language = "ru"
	LanguageEn Language = "en"
)

// ParseLanguage maps a Telegram language code onto a supported language.
func ParseLanguage(code string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(code))) {
	case LanguageUz:
		return LanguageUz, true
	case LanguageRu:
		return LanguageRu, true
	case LanguageEn:
		return LanguageEn, true
	}
	return "", false
}

// IdentityOrigin tells where the active numeric identity came from.
type IdentityOrigin uint8

const (
	OriginNative IdentityOrigin = iota // supplied by the Telegram session
	OriginGuest                        // fabricated locally for a phone number
)

// Identity is the numeric key used for backend correlation. Exactly one
// identity is active for a running session.
type Identity struct {
	TelegramID int64
	Origin     IdentityOrigin
}

// Profile is the backend record for a customer. ID is assigned by the
// backend on first upsert; TelegramID is the identity it is keyed by.
type Profile struct {
	ID          int64     `json:"id"`
	TelegramID  int64     `json:"telegram_id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	Language    Language  `json:"language"`
	CreatedAt   time.Time `json:"created_at"`
}

type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ImagePath string `json:"image_path,omitempty"`
}

// Product prices are integer so'm. Totals are exact sums, no float drift.
type Product struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	ImagePath  string `json:"image_path,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// CartItem holds a selected product. Quantity is strictly >= 1; a zero or
// negative quantity is expressed by removing the item instead.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// OrderItemInput is one line of an order-creation request.
type OrderItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
)

// OrderItem carries a snapshot of the product at order time, so later
// catalog edits do not rewrite history.
type OrderItem struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	TotalPrice  int64  `json:"total_price"`
}

// Order is created by the backend on successful checkout and never mutated
// client-side afterward.
type Order struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"user_id"`
	Status     OrderStatus `json:"status"`
	TotalPrice int64       `json:"total_price"`
	Comment    string      `json:"comment,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Items      []OrderItem `json:"items"`
}

// NormalizePhone strips everything but digits.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
