package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/order/model"
	"storefront-backend/pkg/database"
)

// DuplicateKeyError reports which sparse unique index rejected an
// insert so callers can fetch the winning row.
type DuplicateKeyError struct {
	Field string // "idempotency_key", "gateway_txn_id", "checkout_session_id", "order_code"
}

func (e *DuplicateKeyError) Error() string {
	return "duplicate order key: " + e.Field
}

func (e *DuplicateKeyError) Unwrap() error {
	return model.ErrDuplicateKey
}

type RepositoryInterface interface {
	Create(ctx context.Context, q database.Querier, order *model.Order) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByOrderCode(ctx context.Context, code string) (*model.Order, error)

	// GetByIdempotencyKey returns the newest non-cancelled order for
	// the key, or ErrOrderNotFound.
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Order, error)
	GetByGatewayTxnID(ctx context.Context, txnID string) (*model.Order, error)
	GetByCheckoutSessionID(ctx context.Context, sessionID uuid.UUID) (*model.Order, error)

	// HasOrderForSession implements the ownership check used by the
	// expiry workers.
	HasOrderForSession(ctx context.Context, sessionID uuid.UUID) (bool, error)

	// MarkConfirmed performs the single DRAFT/PENDING -> CONFIRMED
	// transition. The conditional filter guarantees two concurrent
	// commits cannot both succeed; the loser gets ErrAlreadyCommitted
	// or ErrNotCommittable.
	MarkConfirmed(ctx context.Context, q database.Querier, id uuid.UUID, info *model.PaymentInfo, results []model.StockCommitResult) error

	// Cancel moves a DRAFT/PENDING order to CANCELLED/FAILED.
	Cancel(ctx context.Context, q database.Querier, id uuid.UUID, reason string) error

	// MarkPendingReview parks an order that could not be committed
	// cleanly for operator attention.
	MarkPendingReview(ctx context.Context, id uuid.UUID, reason string) error

	ListStuckDrafts(ctx context.Context, olderThan time.Duration, window time.Duration, limit int) ([]model.Order, error)
	ListRecentWithTxn(ctx context.Context, window time.Duration, limit int) ([]model.Order, error)
	ListByEmail(ctx context.Context, email string, limit int) ([]model.Order, error)
}
