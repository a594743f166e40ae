package service

import (
	"context"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/checkout/model"
)

type ServiceInterface interface {
	// CreateSession validates the cart against the live catalog,
	// freezes the snapshot, and reserves stock. Session insert and
	// stock holds commit in one transaction.
	CreateSession(ctx context.Context, req *model.CreateSessionRequest) (*model.CheckoutSession, error)

	GetSession(ctx context.Context, id uuid.UUID) (*model.CheckoutSession, error)

	// ExpireAbandoned marks open sessions past their expiry. Sessions
	// bound to a draft order are skipped; stock release itself is the
	// reservation sweep's job.
	ExpireAbandoned(ctx context.Context) (int, error)
}
