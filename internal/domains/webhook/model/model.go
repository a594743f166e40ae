package model

import (
	"time"

	"github.com/google/uuid"
)

// Event classes after state mapping. Anything the mapper cannot place
// is ignored by the processor.
const (
	EventSuccess = "success"
	EventFailure = "failure"
)

// Queue priorities. Success events jump the line because they gate
// stock commits; failures only release holds.
const (
	PrioritySuccess = 10
	PriorityFailure = 5
	PriorityOther   = 1
)

// RawWebhook is the durable record of one gateway callback. The body
// is persisted before any processing so recovery is always possible.
type RawWebhook struct {
	ID             uuid.UUID              `json:"id"`
	Provider       string                 `json:"provider"`
	Headers        map[string]string      `json:"headers"`
	RawBody        []byte                 `json:"rawBody"`
	IdempotencyKey string                 `json:"idempotencyKey"`
	GatewayTxnID   string                 `json:"gatewayTxnId"`
	Event          string                 `json:"event"`
	State          string                 `json:"state"`
	AmountMinor    int64                  `json:"amountMinor"`
	Priority       int                    `json:"priority"`
	CorrelationID  string                 `json:"correlationId"`

	Processed           bool       `json:"processed"`
	Processing          bool       `json:"processing"`
	ProcessingStartedAt *time.Time `json:"processingStartedAt,omitempty"`
	ProcessedAt         *time.Time `json:"processedAt,omitempty"`
	Result              *string    `json:"result,omitempty"`

	RetryCount int        `json:"retryCount"`
	RetryAfter *time.Time `json:"retryAfter,omitempty"`
	DeadLetter bool       `json:"deadLetter"`
	LastError  *string    `json:"lastError,omitempty"`

	RequiresManualProcessing bool `json:"requiresManualProcessing"`

	ReceivedAt time.Time `json:"receivedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// WebhookPayload is the minimum body the gateway sends. The inner
// orderId is the merchant transaction id, not our order code.
type WebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		OrderID               string `json:"orderId"`
		MerchantTransactionID string `json:"merchantTransactionId"`
		State                 string `json:"state"`
		Amount                int64  `json:"amount"`
	} `json:"payload"`
}

// TxnID prefers the explicit merchant transaction id over the legacy
// orderId field.
func (p *WebhookPayload) TxnID() string {
	if p.Payload.MerchantTransactionID != "" {
		return p.Payload.MerchantTransactionID
	}
	return p.Payload.OrderID
}

// MapState buckets a gateway state string into an event class.
// Unknown states map to empty and are dropped by the processor.
func MapState(state string) string {
	switch state {
	case "COMPLETED", "SUCCESS":
		return EventSuccess
	case "FAILED", "CANCELLED":
		return EventFailure
	default:
		return ""
	}
}

// PriorityFor orders the queue: success before failure before noise.
func PriorityFor(event string) int {
	switch event {
	case EventSuccess:
		return PrioritySuccess
	case EventFailure:
		return PriorityFailure
	default:
		return PriorityOther
	}
}
