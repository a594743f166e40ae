package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	checkoutmodel "storefront-backend/internal/domains/checkout/model"
	checkoutrepo "storefront-backend/internal/domains/checkout/repository"
	ordermodel "storefront-backend/internal/domains/order/model"
	orderrepo "storefront-backend/internal/domains/order/repository"
	orderservice "storefront-backend/internal/domains/order/service"
	paymentmodel "storefront-backend/internal/domains/payment/model"
	paymentrepo "storefront-backend/internal/domains/payment/repository"
	"storefront-backend/internal/domains/webhook/model"
	"storefront-backend/internal/domains/webhook/repository"
	"storefront-backend/internal/shared/utils"
	"storefront-backend/pkg/database"
	"storefront-backend/pkg/logger"
)

// Processor resolves persisted webhooks into order transitions. All
// order and stock writes go through the order commit service so its
// invariants hold no matter which rung of the ladder matched.
type Processor struct {
	repo             repository.RepositoryInterface
	orderRepo        orderrepo.RepositoryInterface
	commitService    orderservice.CommitServiceInterface
	paymentRepo      paymentrepo.RepositoryInterface
	checkoutRepo     checkoutrepo.RepositoryInterface
	pool             database.DB
	emergencyCeiling int64
	breaker          *gobreaker.CircuitBreaker
}

func NewProcessor(
	repo repository.RepositoryInterface,
	orderRepo orderrepo.RepositoryInterface,
	commitService orderservice.CommitServiceInterface,
	paymentRepo paymentrepo.RepositoryInterface,
	checkoutRepo checkoutrepo.RepositoryInterface,
	pool database.DB,
	emergencyCeiling int64,
) *Processor {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "webhook-processor",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Webhook processor circuit state change", map[string]interface{}{
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})

	return &Processor{
		repo:             repo,
		orderRepo:        orderRepo,
		commitService:    commitService,
		paymentRepo:      paymentRepo,
		checkoutRepo:     checkoutRepo,
		pool:             pool,
		emergencyCeiling: emergencyCeiling,
		breaker:          breaker,
	}
}

// Process resolves one webhook. The returned result string is recorded
// on the RawWebhook; an error means the attempt should be retried by
// the queue manager. Intake keeps accepting while the breaker is open.
func (p *Processor) Process(ctx context.Context, webhook *model.RawWebhook) (string, error) {
	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.process(ctx, webhook)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (p *Processor) process(ctx context.Context, webhook *model.RawWebhook) (string, error) {
	if webhook.Processed {
		return "already_processed", nil
	}
	if webhook.GatewayTxnID == "" {
		return "ignored:no_txn", nil
	}

	switch webhook.Event {
	case model.EventSuccess:
		return p.processSuccess(ctx, webhook)
	case model.EventFailure:
		return p.processFailure(ctx, webhook)
	default:
		return "ignored:unknown_state", nil
	}
}

// processSuccess walks the resolution ladder: draft order, paid order,
// payment-session snapshot, checkout-session snapshot, emergency.
func (p *Processor) processSuccess(ctx context.Context, webhook *model.RawWebhook) (string, error) {
	info := p.paymentInfo(webhook)

	order, err := p.orderRepo.GetByGatewayTxnID(ctx, webhook.GatewayTxnID)
	if err == nil {
		return p.commitOrder(ctx, order, info, webhook)
	}
	if !errors.Is(err, ordermodel.ErrOrderNotFound) {
		return "", err
	}

	order, err = p.orderFromSnapshot(ctx, webhook)
	if err == nil && order != nil {
		return p.commitOrder(ctx, order, info, webhook)
	}
	if err != nil {
		return "", err
	}

	return p.createEmergencyOrder(ctx, webhook)
}

func (p *Processor) commitOrder(ctx context.Context, order *ordermodel.Order, info *ordermodel.PaymentInfo, webhook *model.RawWebhook) (string, error) {
	if expected := paymentmodel.MinorUnits(order.Total); webhook.AmountMinor != 0 && webhook.AmountMinor != expected {
		logger.Warn("Webhook amount differs from order total", map[string]interface{}{
			"order_code":      order.OrderCode,
			"webhook_amount":  webhook.AmountMinor,
			"expected_amount": expected,
		})
	}

	outcome, err := p.commitService.Commit(ctx, order.ID, info)
	if err != nil {
		return "", err
	}

	if outcome == ordermodel.OutcomeAlreadyCommitted {
		return "already_committed", nil
	}
	return "committed", nil
}

// orderFromSnapshot rebuilds a draft from the payment-session snapshot,
// falling back to the checkout-session snapshot when the payment
// session has no line items. Returns (nil, nil) when neither source
// exists.
func (p *Processor) orderFromSnapshot(ctx context.Context, webhook *model.RawWebhook) (*ordermodel.Order, error) {
	ps, err := p.paymentRepo.GetByTxnID(ctx, webhook.GatewayTxnID)
	if err != nil {
		if errors.Is(err, paymentmodel.ErrPaymentSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	items := ps.Items
	shipping := ps.ShippingInfo
	subtotal := ps.Subtotal
	shippingCost := ps.ShippingCost
	total := ps.Total
	email := ps.UserEmail

	if len(items) == 0 {
		cs, err := p.checkoutRepo.GetByID(ctx, ps.CheckoutSessionID)
		if err != nil {
			if !errors.Is(err, checkoutmodel.ErrSessionNotFound) {
				return nil, err
			}
		} else {
			items = cs.Items
			shipping = cs.ShippingInfo
			subtotal = cs.Subtotal
			shippingCost = cs.ShippingCost
			total = cs.Total
			email = cs.UserEmail
		}
	}

	if len(items) == 0 {
		return nil, nil
	}

	lines := make([]ordermodel.LineItem, 0, len(items))
	for _, line := range items {
		lines = append(lines, ordermodel.LineItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}

	now := time.Now()
	key := "recovered:" + webhook.GatewayTxnID
	txn := webhook.GatewayTxnID
	sessionID := ps.CheckoutSessionID

	order := &ordermodel.Order{
		ID:                uuid.New(),
		OrderCode:         utils.GenerateOrderCode(now),
		IdempotencyKey:    &key,
		GatewayTxnID:      &txn,
		CheckoutSessionID: &sessionID,
		Status:            ordermodel.StatusDraft,
		PaymentStatus:     ordermodel.PaymentPending,
		Items:             lines,
		Subtotal:          subtotal,
		ShippingCost:      shippingCost,
		Total:             total,
		UserEmail:         email,
		ShippingInfo:      shipping,
		StockReserved:     true,
		DraftCreatedAt:    now,
	}

	err = database.WithTransaction(ctx, p.pool, func(tx pgx.Tx) error {
		return p.orderRepo.Create(ctx, tx, order)
	})
	if err != nil {
		var dup *orderrepo.DuplicateKeyError
		if errors.As(err, &dup) {
			// A concurrent attempt won; commit whatever it created.
			return p.orderRepo.GetByGatewayTxnID(ctx, webhook.GatewayTxnID)
		}
		return nil, err
	}

	logger.Info("Order rebuilt from payment snapshot", map[string]interface{}{
		"order_code":     order.OrderCode,
		"gateway_txn_id": webhook.GatewayTxnID,
		"items":          len(lines),
	})

	return order, nil
}

// createEmergencyOrder is the last rung. Guards: success state, a
// positive amount, and the configured sanity ceiling. The result is a
// shell order an operator must enrich by hand; it never touches stock.
func (p *Processor) createEmergencyOrder(ctx context.Context, webhook *model.RawWebhook) (string, error) {
	if webhook.AmountMinor <= 0 {
		logger.Critical("Emergency order rejected: non-positive amount", model.ErrEmergencyRejected, map[string]interface{}{
			"gateway_txn_id": webhook.GatewayTxnID,
			"amount_minor":   webhook.AmountMinor,
		})
		return "", model.ErrEmergencyRejected
	}
	if webhook.AmountMinor > p.emergencyCeiling {
		logger.Critical("Emergency order rejected: amount exceeds ceiling", model.ErrEmergencyRejected, map[string]interface{}{
			"gateway_txn_id": webhook.GatewayTxnID,
			"amount_minor":   webhook.AmountMinor,
			"ceiling":        p.emergencyCeiling,
		})
		return "", model.ErrEmergencyRejected
	}

	now := time.Now()
	key := "emergency:" + webhook.GatewayTxnID
	txn := webhook.GatewayTxnID
	total := decimalFromMinor(webhook.AmountMinor)

	order := &ordermodel.Order{
		ID:                       uuid.New(),
		OrderCode:                utils.GenerateOrderCode(now),
		IdempotencyKey:           &key,
		GatewayTxnID:             &txn,
		Status:                   ordermodel.StatusPendingReview,
		PaymentStatus:            ordermodel.PaymentPaid,
		Items:                    []ordermodel.LineItem{},
		Subtotal:                 total,
		Total:                    total,
		RequiresManualProcessing: true,
		ProviderPayload:          rawPayload(webhook),
		DraftCreatedAt:           now,
	}
	paidAt := now
	order.PaidAt = &paidAt

	err := database.WithTransaction(ctx, p.pool, func(tx pgx.Tx) error {
		return p.orderRepo.Create(ctx, tx, order)
	})
	if err != nil {
		var dup *orderrepo.DuplicateKeyError
		if errors.As(err, &dup) {
			return "emergency_duplicate", nil
		}
		return "", err
	}

	logger.Critical("Emergency order created from unmatched payment", nil, map[string]interface{}{
		"order_code":     order.OrderCode,
		"gateway_txn_id": webhook.GatewayTxnID,
		"amount_minor":   webhook.AmountMinor,
	})

	return "emergency_created", nil
}

func (p *Processor) processFailure(ctx context.Context, webhook *model.RawWebhook) (string, error) {
	order, err := p.orderRepo.GetByGatewayTxnID(ctx, webhook.GatewayTxnID)
	if err != nil {
		if errors.Is(err, ordermodel.ErrOrderNotFound) {
			logger.Info("Failure webhook for unknown order, ignoring", map[string]interface{}{
				"gateway_txn_id": webhook.GatewayTxnID,
			})
			return "ignored:no_order", nil
		}
		return "", err
	}

	reason := fmt.Sprintf("payment %s at gateway", webhook.State)
	err = p.commitService.CancelWithRelease(ctx, order.ID, reason)
	if err != nil {
		if errors.Is(err, ordermodel.ErrNotCommittable) {
			// Paid or otherwise settled; a late failure event must not
			// unwind it.
			return "ignored:not_cancellable", nil
		}
		return "", err
	}

	return "cancelled", nil
}

func (p *Processor) paymentInfo(webhook *model.RawWebhook) *ordermodel.PaymentInfo {
	return &ordermodel.PaymentInfo{
		GatewayTxnID: webhook.GatewayTxnID,
		AmountMinor:  webhook.AmountMinor,
		State:        webhook.State,
		Raw:          rawPayload(webhook),
	}
}

func rawPayload(webhook *model.RawWebhook) map[string]interface{} {
	var raw map[string]interface{}
	if err := json.Unmarshal(webhook.RawBody, &raw); err != nil {
		return nil
	}
	return raw
}

func decimalFromMinor(amountMinor int64) decimal.Decimal {
	return decimal.NewFromInt(amountMinor).Div(decimal.NewFromInt(100))
}
