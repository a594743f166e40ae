package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	checkoutmodel "storefront-backend/internal/domains/checkout/model"
	ordermodel "storefront-backend/internal/domains/order/model"
	orderservice "storefront-backend/internal/domains/order/service"
	"storefront-backend/internal/domains/payment/gateway"
	"storefront-backend/internal/domains/payment/model"
	"storefront-backend/internal/domains/payment/repository"
	"storefront-backend/pkg/database"
	"storefront-backend/pkg/logger"
)

type paymentService struct {
	repo         repository.RepositoryInterface
	draftService orderservice.DraftServiceInterface
	gateway      gateway.PaymentGateway
	pool         database.DB
	redirectURL  string
}

func NewPaymentService(
	repo repository.RepositoryInterface,
	draftService orderservice.DraftServiceInterface,
	gw gateway.PaymentGateway,
	pool database.DB,
	redirectURL string,
) ServiceInterface {
	return &paymentService{
		repo:         repo,
		draftService: draftService,
		gateway:      gw,
		pool:         pool,
		redirectURL:  redirectURL,
	}
}

func (s *paymentService) InitiatePayment(ctx context.Context, req *model.InitiatePaymentRequest) (*model.InitiatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}

	txnID := req.GatewayTxnID
	if txnID == "" {
		txnID = newTxnRef()
	}

	order, err := s.draftService.CreateDraft(ctx, &orderservice.CreateDraftRequest{
		IdempotencyKey: req.IdempotencyKey,
		SessionID:      sessionID,
		GatewayTxnID:   txnID,
	})
	if err != nil {
		return nil, err
	}

	// A retry with the same idempotency key gets back the original
	// draft; its transaction id wins over the freshly minted one.
	if order.GatewayTxnID != nil && *order.GatewayTxnID != "" {
		txnID = *order.GatewayTxnID
	}

	if err := s.snapshotSession(ctx, order, txnID, sessionID); err != nil {
		return nil, err
	}

	resp, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		GatewayTxnID: txnID,
		AmountMinor:  model.MinorUnits(order.Total),
		UserEmail:    order.UserEmail,
		RedirectURL:  s.redirectURL,
	})
	if err != nil {
		logger.Error("Gateway order creation failed", err, map[string]interface{}{
			"order_code":     order.OrderCode,
			"gateway_txn_id": txnID,
		})
		return nil, fmt.Errorf("%w: %v", model.ErrGatewayUnavailable, err)
	}

	logger.Info("Payment initiated", map[string]interface{}{
		"order_code":     order.OrderCode,
		"gateway_txn_id": txnID,
		"amount_minor":   model.MinorUnits(order.Total),
		"gateway":        s.gateway.Name(),
	})

	return &model.InitiatePaymentResponse{
		OrderCode:    order.OrderCode,
		GatewayTxnID: txnID,
		RedirectURL:  resp.RedirectURL,
		AmountMinor:  model.MinorUnits(order.Total),
		Total:        order.Total.StringFixed(2),
	}, nil
}

// snapshotSession persists the cart snapshot keyed by transaction id.
// Insert is conflict-free on retries; a pre-existing snapshot for the
// transaction is left untouched.
func (s *paymentService) snapshotSession(ctx context.Context, order *ordermodel.Order, txnID string, sessionID uuid.UUID) error {
	items := make([]checkoutmodel.LineSnapshot, 0, len(order.Items))
	for _, line := range order.Items {
		items = append(items, checkoutmodel.LineSnapshot{
			ProductID: line.ProductID,
			Name:      line.Name,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}

	orderID := order.ID
	session := &model.PaymentSession{
		ID:                uuid.New(),
		GatewayTxnID:      txnID,
		CheckoutSessionID: sessionID,
		OrderID:           &orderID,
		UserEmail:         order.UserEmail,
		Items:             items,
		ShippingInfo:      order.ShippingInfo,
		Subtotal:          order.Subtotal,
		ShippingCost:      order.ShippingCost,
		Total:             order.Total,
		AmountMinor:       model.MinorUnits(order.Total),
	}

	if err := s.repo.Create(ctx, s.pool, session); err != nil {
		return fmt.Errorf("failed to snapshot payment session: %w", err)
	}

	return nil
}

// newTxnRef mints a merchant transaction id the gateway accepts:
// alphanumeric, under 36 characters.
func newTxnRef() string {
	return "TXN" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}
