package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	checkoutmodel "storefront-backend/internal/domains/checkout/model"
	checkoutrepo "storefront-backend/internal/domains/checkout/repository"
	"storefront-backend/internal/domains/order/model"
	"storefront-backend/internal/domains/order/repository"
	resmodel "storefront-backend/internal/domains/reservation/model"
	resrepo "storefront-backend/internal/domains/reservation/repository"
	stockmodel "storefront-backend/internal/domains/stock/model"
	stockrepo "storefront-backend/internal/domains/stock/repository"
	"storefront-backend/internal/infrastructure/cache"
	"storefront-backend/pkg/database"
	"storefront-backend/pkg/logger"
)

type commitService struct {
	repo            repository.RepositoryInterface
	stockRepo       stockrepo.RepositoryInterface
	reservationRepo resrepo.RepositoryInterface
	checkoutRepo    checkoutrepo.RepositoryInterface
	redis           *cache.RedisClient
	pool            database.DB
}

func NewCommitService(
	repo repository.RepositoryInterface,
	stockRepo stockrepo.RepositoryInterface,
	reservationRepo resrepo.RepositoryInterface,
	checkoutRepo checkoutrepo.RepositoryInterface,
	redis *cache.RedisClient,
	pool database.DB,
) CommitServiceInterface {
	return &commitService{
		repo:            repo,
		stockRepo:       stockRepo,
		reservationRepo: reservationRepo,
		checkoutRepo:    checkoutRepo,
		redis:           redis,
		pool:            pool,
	}
}

// Commit confirms stock item by item, rolls the deductions back on
// partial failure, then flips the order in one conditional update. The
// advisory lock only narrows the race window; correctness comes from
// the conditional updates themselves.
func (s *commitService) Commit(ctx context.Context, orderID uuid.UUID, info *model.PaymentInfo) (model.CommitOutcome, error) {
	if s.redis != nil {
		lock, err := s.redis.AcquireOrderLock(ctx, orderID)
		if err == nil && lock != nil {
			defer lock.Release(ctx)
		}
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}

	if order.IsPaid() {
		return model.OutcomeAlreadyCommitted, nil
	}
	if !order.IsCommittable() {
		return "", fmt.Errorf("order %s in status %s: %w", order.OrderCode, order.Status, model.ErrNotCommittable)
	}

	if len(order.Items) == 0 {
		s.parkForReview(ctx, order, "commit rejected: order has no line items")
		return "", model.NewOrderError(model.CodePendingReview, "order has no line items", model.ErrEmptyCart)
	}

	results, err := s.confirmItems(ctx, order)
	if err != nil {
		return "", err
	}

	err = database.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.repo.MarkConfirmed(ctx, tx, order.ID, info, results); err != nil {
			return err
		}
		s.settleSession(ctx, tx, order)
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyCommitted) {
			// A concurrent commit won after our deductions; give the
			// units back so stock is not deducted twice.
			s.restockAll(ctx, order, order.Items)
			return model.OutcomeAlreadyCommitted, nil
		}
		s.parkForReview(ctx, order, fmt.Sprintf("stock confirmed but order update failed: %v", err))
		return "", model.NewOrderError(model.CodeCommitFailed, "failed to finalize commit", err)
	}

	logger.Info("Order committed", map[string]interface{}{
		"order_code":     order.OrderCode,
		"gateway_txn_id": info.GatewayTxnID,
		"amount_minor":   info.AmountMinor,
		"items":          len(order.Items),
	})

	return model.OutcomeCommitted, nil
}

// confirmItems walks the cart calling Stock.Confirm per line. On the
// first failure every prior deduction is restocked; reserved is not
// re-incremented because those holds were consumed by the confirms.
func (s *commitService) confirmItems(ctx context.Context, order *model.Order) ([]model.StockCommitResult, error) {
	results := make([]model.StockCommitResult, 0, len(order.Items))
	var confirmed []model.LineItem

	for _, item := range order.Items {
		err := s.stockRepo.Confirm(ctx, s.pool, item.ProductID, item.Size, item.Quantity, order.ID)
		result := model.StockCommitResult{
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  item.Quantity,
			OK:        err == nil,
		}
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)

			if rollbackErr := s.restockAll(ctx, order, confirmed); rollbackErr != nil {
				s.parkForReview(ctx, order, fmt.Sprintf("commit rollback failed: %v", rollbackErr))
				return nil, model.NewOrderError(model.CodePendingReview, "commit rollback failed", rollbackErr)
			}

			return nil, model.NewOrderError(model.CodeCommitFailed,
				fmt.Sprintf("stock confirm failed for product %s size %s", item.ProductID, item.Size), err)
		}

		results = append(results, result)
		confirmed = append(confirmed, item)
	}

	return results, nil
}

func (s *commitService) restockAll(ctx context.Context, order *model.Order, items []model.LineItem) error {
	var firstErr error
	for _, item := range items {
		if err := s.stockRepo.Restock(ctx, s.pool, item.ProductID, item.Size, item.Quantity, order.ID); err != nil {
			logger.Error("Failed to restock during commit rollback", err, map[string]interface{}{
				"order_code": order.OrderCode,
				"product_id": item.ProductID,
				"size":       item.Size,
			})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// settleSession consumes the reservation ledger row and completes the
// checkout session. Both are best effort: the order is already
// CONFIRMED and the stock already deducted.
func (s *commitService) settleSession(ctx context.Context, tx pgx.Tx, order *model.Order) {
	if order.CheckoutSessionID == nil {
		return
	}

	if res, err := s.reservationRepo.GetActiveBySessionID(ctx, *order.CheckoutSessionID); err == nil {
		if err := s.reservationRepo.UpdateStatus(ctx, tx, res.ID, resmodel.StatusConfirmed); err != nil &&
			!errors.Is(err, resmodel.ErrReservationNotActive) {
			logger.Warn("Failed to confirm reservation on commit", map[string]interface{}{
				"order_code":     order.OrderCode,
				"reservation_id": res.ID,
				"error":          err.Error(),
			})
		}
	}

	if err := s.checkoutRepo.UpdateStatus(ctx, tx, *order.CheckoutSessionID, checkoutmodel.StatusCompleted); err != nil &&
		!errors.Is(err, checkoutmodel.ErrSessionNotOpen) {
		logger.Warn("Failed to complete session on commit", map[string]interface{}{
			"order_code": order.OrderCode,
			"session_id": order.CheckoutSessionID,
			"error":      err.Error(),
		})
	}
}

func (s *commitService) parkForReview(ctx context.Context, order *model.Order, reason string) {
	if err := s.repo.MarkPendingReview(ctx, order.ID, reason); err != nil {
		logger.Error("Failed to mark order pending review", err, map[string]interface{}{
			"order_code": order.OrderCode,
		})
	}

	logger.Critical("Order parked for manual review", errors.New(reason), map[string]interface{}{
		"order_code": order.OrderCode,
		"status":     order.Status,
	})
}

// CancelWithRelease moves a draft to CANCELLED and returns its stock in
// one transaction. Safe to call repeatedly: the conditional cancel
// fails on the second pass before any stock moves.
func (s *commitService) CancelWithRelease(ctx context.Context, orderID uuid.UUID, reason string) error {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	if order.Status == model.StatusCancelled {
		return nil
	}
	if !order.IsCommittable() {
		return fmt.Errorf("order %s in status %s: %w", order.OrderCode, order.Status, model.ErrNotCommittable)
	}

	err = database.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.repo.Cancel(ctx, tx, order.ID, reason); err != nil {
			return err
		}

		if order.StockReserved && !order.StockConfirmed {
			for _, item := range order.Items {
				if err := s.stockRepo.Release(ctx, tx, item.ProductID, item.Size, item.Quantity, stockmodel.ReferenceOrder, order.ID); err != nil {
					return err
				}
			}
		}

		if order.CheckoutSessionID != nil {
			if res, err := s.reservationRepo.GetActiveBySessionID(ctx, *order.CheckoutSessionID); err == nil {
				if err := s.reservationRepo.UpdateStatus(ctx, tx, res.ID, resmodel.StatusCancelled); err != nil &&
					!errors.Is(err, resmodel.ErrReservationNotActive) {
					return err
				}
			}
			if err := s.checkoutRepo.UpdateStatus(ctx, tx, *order.CheckoutSessionID, checkoutmodel.StatusFailed); err != nil &&
				!errors.Is(err, checkoutmodel.ErrSessionNotOpen) {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Order cancelled and stock released", map[string]interface{}{
		"order_code": order.OrderCode,
		"reason":     reason,
	})

	return nil
}
