package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/reservation/model"
	"storefront-backend/pkg/database"
)

// OrderBindingChecker reports whether a draft order has bound a checkout
// session. Once bound, the order owns the session's reservation and
// expiry must leave it alone.
type OrderBindingChecker interface {
	HasOrderForSession(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

type ServiceInterface interface {
	// CreateInTx reserves stock for every hold and writes the ledger
	// rows on the caller's transaction. Fails atomically with
	// ErrOutOfStock when any hold cannot be satisfied.
	CreateInTx(ctx context.Context, q database.Querier, sessionID uuid.UUID, holds []model.Hold, ttl time.Duration) (*model.Reservation, error)

	// Confirm marks the reservation consumed by a committed order. The
	// stock decrement happened in order commit; only the ledger moves.
	Confirm(ctx context.Context, q database.Querier, reservationID uuid.UUID) error

	// Release cancels an active reservation and returns its holds to
	// the pool, in one transaction.
	Release(ctx context.Context, reservationID uuid.UUID) error

	// ExpireDue sweeps active reservations past their window. Sessions
	// already bound to an order are skipped. Returns released count.
	ExpireDue(ctx context.Context) (int, error)
}
