package repository

import (
	"context"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/stock/model"
	"storefront-backend/pkg/database"
)

// RepositoryInterface exposes the three stock primitives plus the
// rollback restock used by order commit. Mutating methods take a
// database.Querier so callers can compose them into one transaction
// with ledger or order writes.
type RepositoryInterface interface {
	// Reserve holds qty units. Single conditional update: succeeds only
	// when quantity - reserved_quantity >= qty. Returns ErrOutOfStock
	// when the predicate fails.
	Reserve(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refType string, refID uuid.UUID) error

	// Confirm consumes a prior hold on payment success: requires both
	// reserved_quantity >= qty and quantity >= qty, then decrements both.
	Confirm(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refID uuid.UUID) error

	// Release undoes a hold, clamped at zero. Idempotent up to the clamp.
	Release(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refType string, refID uuid.UUID) error

	// Restock re-adds physical units after a partial commit is rolled
	// back. It restores quantity only; the reservation was already
	// consumed by the rolled-back Confirm.
	Restock(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refID uuid.UUID) error

	GetByProductAndSize(ctx context.Context, productID uuid.UUID, size string) (*model.ProductStock, error)
	GetByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]model.ProductStock, error)

	// FindDrifted returns rows whose reserved counter exceeds the sum of
	// active ledger holds.
	FindDrifted(ctx context.Context) ([]model.DriftedStock, error)

	// ResetReserved repairs a drifted counter down to the ledger value,
	// with an audit movement. Never touches quantity.
	ResetReserved(ctx context.Context, q database.Querier, productID uuid.UUID, size string, target int) error
}
