package mock

import (
	"context"
	"fmt"
	"sync"

	"storefront-backend/internal/domains/payment/gateway"
)

// Gateway is an in-memory stand-in for the payment provider, used in
// development and tests. Transactions default to PENDING until a test
// settles them with SetState.
type Gateway struct {
	mu          sync.Mutex
	states      map[string]string
	amounts     map[string]int64
	RedirectURL string

	// CreateOrderErr and GetStatusErr force failures when set.
	CreateOrderErr error
	GetStatusErr   error
}

func New() *Gateway {
	return &Gateway{
		states:      make(map[string]string),
		amounts:     make(map[string]int64),
		RedirectURL: "https://pay.example.test/checkout",
	}
}

func (g *Gateway) Name() string {
	return "mock"
}

func (g *Gateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.CreateOrderResponse, error) {
	if g.CreateOrderErr != nil {
		return nil, g.CreateOrderErr
	}

	g.mu.Lock()
	g.states[req.GatewayTxnID] = gateway.StatePending
	g.amounts[req.GatewayTxnID] = req.AmountMinor
	g.mu.Unlock()

	return &gateway.CreateOrderResponse{
		RedirectURL: fmt.Sprintf("%s?txn=%s", g.RedirectURL, req.GatewayTxnID),
		Raw:         map[string]interface{}{"mock": true},
	}, nil
}

func (g *Gateway) GetStatus(ctx context.Context, gatewayTxnID string) (*gateway.StatusResponse, error) {
	if g.GetStatusErr != nil {
		return nil, g.GetStatusErr
	}

	g.mu.Lock()
	state, ok := g.states[gatewayTxnID]
	amount := g.amounts[gatewayTxnID]
	g.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unknown transaction %s", gatewayTxnID)
	}

	return &gateway.StatusResponse{
		GatewayTxnID: gatewayTxnID,
		State:        state,
		AmountMinor:  amount,
		Raw:          map[string]interface{}{"mock": true},
	}, nil
}

// SetState settles a transaction from a test.
func (g *Gateway) SetState(gatewayTxnID, state string, amountMinor int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.states[gatewayTxnID] = state
	g.amounts[gatewayTxnID] = amountMinor
}
