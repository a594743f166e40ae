package gateway

import "context"

// Gateway-side payment states. Everything else the provider may send is
// treated as unknown and ignored by callers.
const (
	StateCompleted = "COMPLETED"
	StatePending   = "PENDING"
	StateFailed    = "FAILED"
)

// CreateOrderRequest asks the provider to open a hosted-checkout order.
type CreateOrderRequest struct {
	GatewayTxnID string
	AmountMinor  int64
	UserEmail    string
	RedirectURL  string
}

// CreateOrderResponse carries the hosted-checkout redirect target.
type CreateOrderResponse struct {
	RedirectURL string
	Raw         map[string]interface{}
}

// StatusResponse is the provider's answer to a transaction lookup.
type StatusResponse struct {
	GatewayTxnID string
	State        string
	AmountMinor  int64
	Raw          map[string]interface{}
}

// PaymentGateway abstracts the upstream payment provider. The webhook
// processor and the reconciler only ever need a status lookup; payment
// initiation additionally opens an order.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error)
	GetStatus(ctx context.Context, gatewayTxnID string) (*StatusResponse, error)
	Name() string
}
