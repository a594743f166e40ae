package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	checkoutmodel "storefront-backend/internal/domains/checkout/model"
	checkoutrepo "storefront-backend/internal/domains/checkout/repository"
	"storefront-backend/internal/domains/order/model"
	"storefront-backend/internal/domains/order/repository"
	"storefront-backend/internal/shared/utils"
	"storefront-backend/pkg/database"
	"storefront-backend/pkg/logger"
)

type draftService struct {
	repo         repository.RepositoryInterface
	checkoutRepo checkoutrepo.RepositoryInterface
	pool         database.DB
	userLimit    int
}

func NewDraftService(
	repo repository.RepositoryInterface,
	checkoutRepo checkoutrepo.RepositoryInterface,
	pool database.DB,
) DraftServiceInterface {
	return &draftService{
		repo:         repo,
		checkoutRepo: checkoutRepo,
		pool:         pool,
		userLimit:    50,
	}
}

func (s *draftService) CreateDraft(ctx context.Context, req *CreateDraftRequest) (*model.Order, error) {
	// Idempotent fast path: a non-cancelled order for this key wins.
	existing, err := s.repo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrOrderNotFound) {
		return nil, err
	}

	session, err := s.checkoutRepo.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, checkoutmodel.ErrSessionNotOpen
	}
	if !session.StockReserved {
		return nil, model.NewOrderError(model.CodeValidation, "session has no stock reservation", nil)
	}

	order := s.orderFromSession(session, req)

	err = database.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		return s.repo.Create(ctx, tx, order)
	})
	if err != nil {
		order, recovered := s.resolveDuplicate(ctx, err, req)
		if recovered {
			return order, nil
		}
		return nil, err
	}

	logger.Info("Draft order created", map[string]interface{}{
		"order_code":      order.OrderCode,
		"session_id":      req.SessionID,
		"gateway_txn_id":  req.GatewayTxnID,
		"idempotency_key": req.IdempotencyKey,
	})

	return order, nil
}

func (s *draftService) orderFromSession(session *checkoutmodel.CheckoutSession, req *CreateDraftRequest) *model.Order {
	items := make([]model.LineItem, 0, len(session.Items))
	for _, line := range session.Items {
		items = append(items, model.LineItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}

	now := time.Now()
	key := req.IdempotencyKey
	txn := req.GatewayTxnID
	sessionID := req.SessionID

	return &model.Order{
		ID:                uuid.New(),
		OrderCode:         utils.GenerateOrderCode(now),
		IdempotencyKey:    &key,
		GatewayTxnID:      &txn,
		CheckoutSessionID: &sessionID,
		Status:            model.StatusDraft,
		PaymentStatus:     model.PaymentPending,
		Items:             items,
		Subtotal:          session.Subtotal,
		ShippingCost:      session.ShippingCost,
		Total:             session.Total,
		UserEmail:         session.UserEmail,
		ShippingInfo:      session.ShippingInfo,
		StockReserved:     true,
		StockConfirmed:    false,
		DraftCreatedAt:    now,
	}
}

// resolveDuplicate turns a unique-key loss into idempotent success by
// fetching whichever order won the race.
func (s *draftService) resolveDuplicate(ctx context.Context, err error, req *CreateDraftRequest) (*model.Order, bool) {
	var dup *repository.DuplicateKeyError
	if !errors.As(err, &dup) {
		return nil, false
	}

	var winner *model.Order
	var lookupErr error
	switch dup.Field {
	case "idempotency_key":
		winner, lookupErr = s.repo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	case "gateway_txn_id":
		winner, lookupErr = s.repo.GetByGatewayTxnID(ctx, req.GatewayTxnID)
	case "checkout_session_id":
		winner, lookupErr = s.repo.GetByCheckoutSessionID(ctx, req.SessionID)
	default:
		return nil, false
	}
	if lookupErr != nil {
		return nil, false
	}

	logger.Info("Draft creation lost unique-key race, returning winner", map[string]interface{}{
		"field":      dup.Field,
		"order_code": winner.OrderCode,
	})

	return winner, true
}

func (s *draftService) GetByOrderCode(ctx context.Context, code string) (*model.Order, error) {
	return s.repo.GetByOrderCode(ctx, code)
}

func (s *draftService) GetByGatewayTxnID(ctx context.Context, txnID string) (*model.Order, error) {
	return s.repo.GetByGatewayTxnID(ctx, txnID)
}

func (s *draftService) ListForUser(ctx context.Context, email string) ([]model.Order, error) {
	return s.repo.ListByEmail(ctx, email, s.userLimit)
}
