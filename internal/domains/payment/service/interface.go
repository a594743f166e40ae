package service

import (
	"context"

	"storefront-backend/internal/domains/payment/model"
)

type ServiceInterface interface {
	// InitiatePayment cuts the draft order for the session, snapshots
	// the cart into a payment session, and opens a hosted-checkout
	// order at the gateway. Safe to retry with the same idempotency
	// key.
	InitiatePayment(ctx context.Context, req *model.InitiatePaymentRequest) (*model.InitiatePaymentResponse, error)
}
