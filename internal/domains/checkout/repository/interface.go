package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/checkout/model"
	"storefront-backend/pkg/database"
)

type RepositoryInterface interface {
	Create(ctx context.Context, q database.Querier, session *model.CheckoutSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CheckoutSession, error)

	// UpdateStatus transitions only open sessions (pending or
	// awaiting_payment); completed/expired/failed rows stay put.
	UpdateStatus(ctx context.Context, q database.Querier, id uuid.UUID, status string) error

	// ListAbandoned returns open sessions past their expiry.
	ListAbandoned(ctx context.Context, now time.Time, limit int) ([]model.CheckoutSession, error)
}
