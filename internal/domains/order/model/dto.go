package model

import (
	"time"
)

type OrderResponse struct {
	OrderCode          string     `json:"orderCode"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"paymentStatus"`
	Items              []LineItem `json:"items"`
	Subtotal           string     `json:"subtotal"`
	ShippingCost       string     `json:"shippingCost"`
	Total              string     `json:"total"`
	GatewayTxnID       *string    `json:"gatewayTxnId,omitempty"`
	CancellationReason *string    `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	ConfirmedAt        *time.Time `json:"confirmedAt,omitempty"`
}

func NewOrderResponse(o *Order) *OrderResponse {
	return &OrderResponse{
		OrderCode:          o.OrderCode,
		Status:             o.Status,
		PaymentStatus:      o.PaymentStatus,
		Items:              o.Items,
		Subtotal:           o.Subtotal.StringFixed(2),
		ShippingCost:       o.ShippingCost.StringFixed(2),
		Total:              o.Total.StringFixed(2),
		GatewayTxnID:       o.GatewayTxnID,
		CancellationReason: o.CancellationReason,
		CreatedAt:          o.CreatedAt,
		ConfirmedAt:        o.ConfirmedAt,
	}
}

// PaymentInfo is the gateway-derived detail persisted on commit.
type PaymentInfo struct {
	GatewayTxnID string                 `json:"gatewayTxnId"`
	AmountMinor  int64                  `json:"amountMinor"`
	State        string                 `json:"state"`
	Raw          map[string]interface{} `json:"raw,omitempty"`
}

// CommitOutcome distinguishes a fresh commit from an idempotent replay.
type CommitOutcome string

const (
	OutcomeCommitted        CommitOutcome = "committed"
	OutcomeAlreadyCommitted CommitOutcome = "already_committed"
)
