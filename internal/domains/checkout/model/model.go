package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session statuses.
const (
	StatusPending         = "pending"
	StatusAwaitingPayment = "awaiting_payment"
	StatusCompleted       = "completed"
	StatusExpired         = "expired"
	StatusFailed          = "failed"
)

// Session sources.
const (
	SourceCart   = "cart"
	SourceBuyNow = "buynow"
)

// LineSnapshot is one cart line frozen at reservation time. Prices come
// from the live catalog during validation and never change afterwards.
type LineSnapshot struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type ShippingInfo struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country"`
	Notes        string `json:"notes,omitempty"`
}

// CheckoutSession carries the immutable cart snapshot between reserve
// and payment. Once a draft order references the session, its stock is
// owned by the order and workers must not release it.
type CheckoutSession struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	UserEmail     string         `json:"user_email" db:"user_email"`
	Items         []LineSnapshot  `json:"items" db:"items"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	ShippingCost  decimal.Decimal `json:"shipping_cost" db:"shipping_cost"`
	Total         decimal.Decimal `json:"total" db:"total"`
	ShippingInfo  ShippingInfo    `json:"shipping_info" db:"shipping_info"`
	Status        string          `json:"status" db:"status"`
	StockReserved bool            `json:"stock_reserved" db:"stock_reserved"`
	ReservationID *uuid.UUID      `json:"reservation_id,omitempty" db:"reservation_id"`
	Source        string          `json:"source" db:"source"`
	ExpiresAt     time.Time       `json:"expires_at" db:"expires_at"`
	TimeoutAt     time.Time       `json:"timeout_at" db:"timeout_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

func (s *CheckoutSession) IsOpen() bool {
	return s.Status == StatusPending || s.Status == StatusAwaitingPayment
}
