package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	ordermodel "storefront-backend/internal/domains/order/model"
	orderrepo "storefront-backend/internal/domains/order/repository"
	orderservice "storefront-backend/internal/domains/order/service"
	"storefront-backend/internal/domains/payment/gateway"
	"storefront-backend/internal/domains/webhook/model"
	"storefront-backend/internal/domains/webhook/repository"
	"storefront-backend/pkg/logger"
)

const (
	reconcileWindow  = 24 * time.Hour
	stuckDraftAge    = 5 * time.Minute
	reconcileBatch   = 100
	orphanSweepBatch = 50
)

// Reconciler closes the gap between gateway truth and local state. It
// never writes stock or orders directly: every transition it triggers
// goes through the processor or the commit service.
type Reconciler struct {
	repo          repository.RepositoryInterface
	orderRepo     orderrepo.RepositoryInterface
	commitService orderservice.CommitServiceInterface
	gateway       gateway.PaymentGateway
	queue         *QueueManager
}

func NewReconciler(
	repo repository.RepositoryInterface,
	orderRepo orderrepo.RepositoryInterface,
	commitService orderservice.CommitServiceInterface,
	gw gateway.PaymentGateway,
	queue *QueueManager,
) *Reconciler {
	return &Reconciler{
		repo:          repo,
		orderRepo:     orderRepo,
		commitService: commitService,
		gateway:       gw,
		queue:         queue,
	}
}

// Run executes the three reconciliation passes. Each pass logs and
// continues on per-item errors so one bad record cannot stall the
// rest.
func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.reconcileStuckDrafts(ctx); err != nil {
		logger.Error("Stuck-draft pass failed", err)
	}
	if err := r.reconcileMissingWebhooks(ctx); err != nil {
		logger.Error("Missing-webhook pass failed", err)
	}
	if err := r.reconcileOrphanPayments(ctx); err != nil {
		logger.Error("Orphan-payment pass failed", err)
	}
	return nil
}

// reconcileStuckDrafts settles drafts that never saw their webhook:
// the gateway is asked directly, then the answer is replayed through
// the normal pipeline.
func (r *Reconciler) reconcileStuckDrafts(ctx context.Context) error {
	drafts, err := r.orderRepo.ListStuckDrafts(ctx, stuckDraftAge, reconcileWindow, reconcileBatch)
	if err != nil {
		return err
	}

	for i := range drafts {
		order := &drafts[i]
		if order.GatewayTxnID == nil {
			continue
		}

		status, err := r.gateway.GetStatus(ctx, *order.GatewayTxnID)
		if err != nil {
			logger.Warn("Gateway status lookup failed during reconcile", map[string]interface{}{
				"order_code":     order.OrderCode,
				"gateway_txn_id": *order.GatewayTxnID,
				"error":          err.Error(),
			})
			continue
		}

		switch status.State {
		case gateway.StateCompleted:
			if err := r.replay(ctx, status); err != nil {
				logger.Error("Failed to replay reconciled payment", err, map[string]interface{}{
					"order_code": order.OrderCode,
				})
			}
		case gateway.StateFailed:
			if err := r.commitService.CancelWithRelease(ctx, order.ID, "payment failed, found by reconciliation"); err != nil {
				logger.Error("Failed to cancel stuck draft", err, map[string]interface{}{
					"order_code": order.OrderCode,
				})
			}
		default:
			// Still pending at the gateway; leave it for the next pass.
		}
	}

	return nil
}

// reconcileMissingWebhooks covers orders whose webhook never arrived at
// all, including ones already settled some other way.
func (r *Reconciler) reconcileMissingWebhooks(ctx context.Context) error {
	orders, err := r.orderRepo.ListRecentWithTxn(ctx, reconcileWindow, reconcileBatch)
	if err != nil {
		return err
	}

	for i := range orders {
		order := &orders[i]
		if order.GatewayTxnID == nil || order.IsPaid() || order.Status == ordermodel.StatusCancelled {
			continue
		}

		seen, err := r.repo.ExistsProcessedForTxn(ctx, *order.GatewayTxnID)
		if err != nil || seen {
			continue
		}

		status, err := r.gateway.GetStatus(ctx, *order.GatewayTxnID)
		if err != nil {
			continue
		}

		if status.State == gateway.StateCompleted || status.State == gateway.StateFailed {
			if err := r.replay(ctx, status); err != nil {
				logger.Error("Failed to replay missing webhook", err, map[string]interface{}{
					"order_code": order.OrderCode,
				})
			}
		}
	}

	return nil
}

// reconcileOrphanPayments re-runs processed success webhooks that
// matched nothing, routing them back through the ladder (which ends in
// emergency creation).
func (r *Reconciler) reconcileOrphanPayments(ctx context.Context) error {
	orphans, err := r.repo.ListOrphanSuccesses(ctx, reconcileWindow, orphanSweepBatch)
	if err != nil {
		return err
	}

	for i := range orphans {
		w := &orphans[i]
		w.Processed = false

		result, err := r.queue.processor.Process(ctx, w)
		if err != nil {
			logger.Warn("Orphan payment still unresolved", map[string]interface{}{
				"webhook_id":     w.ID,
				"gateway_txn_id": w.GatewayTxnID,
				"error":          err.Error(),
			})
			continue
		}

		if err := r.repo.MarkProcessed(ctx, w.ID, result); err != nil {
			logger.Error("Failed to record orphan resolution", err, map[string]interface{}{
				"webhook_id": w.ID,
			})
		}
	}

	return nil
}

// replay synthesizes a webhook from a gateway status answer and pushes
// it through intake-equivalent persistence and the processor.
func (r *Reconciler) replay(ctx context.Context, status *gateway.StatusResponse) error {
	body, err := json.Marshal(map[string]interface{}{
		"event": "reconciled",
		"payload": map[string]interface{}{
			"orderId": status.GatewayTxnID,
			"state":   status.State,
			"amount":  status.AmountMinor,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build synthetic webhook body: %w", err)
	}

	event := model.MapState(status.State)
	key := model.ComputeIdempotencyKey(status.GatewayTxnID, status.GatewayTxnID, status.AmountMinor, status.State)

	if _, err := r.repo.FindProcessedByKey(ctx, key); err == nil {
		return nil
	}

	webhook := &model.RawWebhook{
		ID:             uuid.New(),
		Provider:       r.gateway.Name(),
		Headers:        map[string]string{"X-Synthetic": "reconciler"},
		RawBody:        body,
		IdempotencyKey: key,
		GatewayTxnID:   status.GatewayTxnID,
		Event:          event,
		State:          status.State,
		AmountMinor:    status.AmountMinor,
		Priority:       model.PriorityFor(event),
		CorrelationID:  "reconciler",
	}

	if err := r.repo.Insert(ctx, webhook); err != nil {
		return err
	}

	result, err := r.queue.processor.Process(ctx, webhook)
	if err != nil {
		// Leave it unprocessed; the pump retries with backoff.
		return err
	}

	return r.repo.MarkProcessed(ctx, webhook.ID, result)
}
