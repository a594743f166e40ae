package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	checkoutmodel "storefront-backend/internal/domains/checkout/model"
)

// PaymentSession snapshots the cart at payment-initiate time, keyed by
// the gateway transaction id. When a success webhook arrives for a
// transaction whose draft order is gone, this snapshot is what the
// emergency pipeline rebuilds the order from.
type PaymentSession struct {
	ID                uuid.UUID                    `json:"id"`
	GatewayTxnID      string                       `json:"gatewayTxnId"`
	CheckoutSessionID uuid.UUID                    `json:"checkoutSessionId"`
	OrderID           *uuid.UUID                   `json:"orderId,omitempty"`
	UserEmail         string                       `json:"userEmail"`
	Items             []checkoutmodel.LineSnapshot `json:"items"`
	ShippingInfo      checkoutmodel.ShippingInfo   `json:"shippingInfo"`
	Subtotal          decimal.Decimal              `json:"subtotal"`
	ShippingCost      decimal.Decimal              `json:"shippingCost"`
	Total             decimal.Decimal              `json:"total"`
	AmountMinor       int64                        `json:"amountMinor"`
	CreatedAt         time.Time                    `json:"createdAt"`
	UpdatedAt         time.Time                    `json:"updatedAt"`
}

// MinorUnits converts a major-unit decimal amount to the gateway's
// integer minor units (major * 100, rounded to the nearest unit).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
