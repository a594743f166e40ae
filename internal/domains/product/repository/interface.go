package repository

import (
	"context"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/product/model"
)

type RepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error)
}
