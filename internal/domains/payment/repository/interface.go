package repository

import (
	"context"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/payment/model"
	"storefront-backend/pkg/database"
)

type RepositoryInterface interface {
	Create(ctx context.Context, q database.Querier, session *model.PaymentSession) error
	GetByTxnID(ctx context.Context, gatewayTxnID string) (*model.PaymentSession, error)
	BindOrder(ctx context.Context, gatewayTxnID string, orderID uuid.UUID) error
}
