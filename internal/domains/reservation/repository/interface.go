package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/reservation/model"
	"storefront-backend/pkg/database"
)

type RepositoryInterface interface {
	// Create inserts the reservation and its items. Runs on the
	// caller's Querier so ledger rows and stock counters commit
	// together.
	Create(ctx context.Context, q database.Querier, res *model.Reservation) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	GetActiveBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.Reservation, error)

	// UpdateStatus transitions only from active; returns
	// ErrReservationNotActive when the row was already moved.
	UpdateStatus(ctx context.Context, q database.Querier, id uuid.UUID, status string) error

	// ListExpiredActive returns active reservations past their expiry,
	// or older than maxAge regardless of expiry.
	ListExpiredActive(ctx context.Context, now time.Time, maxAge time.Duration, limit int) ([]model.Reservation, error)
}
