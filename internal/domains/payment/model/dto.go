package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type InitiatePaymentRequest struct {
	SessionID      string `json:"sessionId"`
	IdempotencyKey string `json:"idempotencyKey"`
	// GatewayTxnID is optional; the server mints one when absent.
	GatewayTxnID string `json:"gatewayTxnId"`
}

func (r InitiatePaymentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SessionID, validation.Required, is.UUID),
		validation.Field(&r.IdempotencyKey, validation.Required, validation.Length(8, 128)),
		validation.Field(&r.GatewayTxnID, validation.Length(0, 64)),
	)
}

type InitiatePaymentResponse struct {
	OrderCode    string `json:"orderCode"`
	GatewayTxnID string `json:"gatewayTxnId"`
	RedirectURL  string `json:"redirectUrl"`
	AmountMinor  int64  `json:"amountMinor"`
	Total        string `json:"total"`
}
