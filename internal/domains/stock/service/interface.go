package service

import (
	"context"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/stock/model"
)

type ServiceInterface interface {
	// GetAvailability returns the per-size counters for a product.
	// Shopper-visible availability is quantity - reserved_quantity.
	GetAvailability(ctx context.Context, productID uuid.UUID) ([]model.ProductStock, error)

	// RepairDrift resets reserved counters that exceed the active
	// ledger holds. Returns the number of rows repaired.
	RepairDrift(ctx context.Context) (int, error)
}
