package service

import (
	"context"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/order/model"
)

// CreateDraftRequest carries everything payment-initiate knows when the
// draft is cut. The idempotency key comes from the caller; the cart
// snapshot comes from the bound checkout session.
type CreateDraftRequest struct {
	IdempotencyKey string
	SessionID      uuid.UUID
	GatewayTxnID   string
}

type DraftServiceInterface interface {
	// CreateDraft returns the existing non-cancelled order for the
	// idempotency key when there is one; otherwise it creates a DRAFT
	// bound to the session. Duplicate-key races resolve to the winner.
	CreateDraft(ctx context.Context, req *CreateDraftRequest) (*model.Order, error)

	GetByOrderCode(ctx context.Context, code string) (*model.Order, error)
	GetByGatewayTxnID(ctx context.Context, txnID string) (*model.Order, error)
	ListForUser(ctx context.Context, email string) ([]model.Order, error)
}

type CommitServiceInterface interface {
	// Commit is the only DRAFT -> CONFIRMED path in the system.
	// Idempotent: a paid order returns OutcomeAlreadyCommitted.
	Commit(ctx context.Context, orderID uuid.UUID, info *model.PaymentInfo) (model.CommitOutcome, error)

	// CancelWithRelease cancels a draft on payment failure and returns
	// its stock holds.
	CancelWithRelease(ctx context.Context, orderID uuid.UUID, reason string) error
}
