package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	checkoutmodel "storefront-backend/internal/domains/checkout/model"
)

// Order statuses. PENDING is the legacy spelling of DRAFT and is
// accepted everywhere DRAFT is.
const (
	StatusDraft         = "DRAFT"
	StatusPending       = "PENDING"
	StatusConfirmed     = "CONFIRMED"
	StatusCancelled     = "CANCELLED"
	StatusShipped       = "SHIPPED"
	StatusDelivered     = "DELIVERED"
	StatusPendingReview = "PENDING_REVIEW"
)

// Payment statuses.
const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentFailed   = "FAILED"
	PaymentRefunded = "REFUNDED"
)

// StockCommitResult records one item's deduction during commit.
type StockCommitResult struct {
	ProductID uuid.UUID `json:"productId"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
}

// Order is the durable record of a payment attempt and its outcome.
// The three sparse unique keys (idempotency_key, gateway_txn_id,
// checkout_session_id) make creation idempotent under races.
type Order struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	OrderCode         string     `json:"order_code" db:"order_code"`
	IdempotencyKey    *string    `json:"idempotency_key,omitempty" db:"idempotency_key"`
	GatewayTxnID      *string    `json:"gateway_txn_id,omitempty" db:"gateway_txn_id"`
	CheckoutSessionID *uuid.UUID `json:"checkout_session_id,omitempty" db:"checkout_session_id"`

	Status        string `json:"status" db:"status"`
	PaymentStatus string `json:"payment_status" db:"payment_status"`

	Items        []LineItem      `json:"items" db:"items"`
	Subtotal     decimal.Decimal `json:"subtotal" db:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost" db:"shipping_cost"`
	Total        decimal.Decimal `json:"total" db:"total"`

	UserEmail    string                     `json:"user_email" db:"user_email"`
	ShippingInfo checkoutmodel.ShippingInfo `json:"shipping_info" db:"shipping_info"`

	StockReserved            bool `json:"stock_reserved" db:"stock_reserved"`
	StockConfirmed           bool `json:"stock_confirmed" db:"stock_confirmed"`
	RequiresManualProcessing bool `json:"requires_manual_processing" db:"requires_manual_processing"`

	ProviderPayload    map[string]interface{} `json:"provider_payload,omitempty" db:"provider_payload"`
	StockCommitResults []StockCommitResult    `json:"stock_commit_results,omitempty" db:"stock_commit_results"`

	CancellationReason *string `json:"cancellation_reason,omitempty" db:"cancellation_reason"`

	DraftCreatedAt time.Time  `json:"draft_created_at" db:"draft_created_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
	PaidAt         *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsCommittable reports whether commit may run. DRAFT and the legacy
// PENDING are both accepted.
func (o *Order) IsCommittable() bool {
	return (o.Status == StatusDraft || o.Status == StatusPending) && o.PaymentStatus != PaymentPaid
}

func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}
