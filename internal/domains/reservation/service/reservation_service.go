package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"storefront-backend/internal/domains/reservation/model"
	"storefront-backend/internal/domains/reservation/repository"
	stockmodel "storefront-backend/internal/domains/stock/model"
	stockrepo "storefront-backend/internal/domains/stock/repository"
	"storefront-backend/pkg/database"
	"storefront-backend/pkg/logger"
)

type reservationService struct {
	repo         repository.RepositoryInterface
	stockRepo    stockrepo.RepositoryInterface
	orders       OrderBindingChecker
	pool         database.DB
	maxActiveAge time.Duration
	expiryBatch  int
}

func NewService(
	repo repository.RepositoryInterface,
	stockRepo stockrepo.RepositoryInterface,
	orders OrderBindingChecker,
	pool database.DB,
	paymentWindow time.Duration,
) ServiceInterface {
	return &reservationService{
		repo:         repo,
		stockRepo:    stockRepo,
		orders:       orders,
		pool:         pool,
		maxActiveAge: paymentWindow,
		expiryBatch:  100,
	}
}

func (s *reservationService) CreateInTx(ctx context.Context, q database.Querier, sessionID uuid.UUID, holds []model.Hold, ttl time.Duration) (*model.Reservation, error) {
	if len(holds) == 0 {
		return nil, model.ErrEmptyReservation
	}

	res := &model.Reservation{
		ID:        uuid.New(),
		SessionID: sessionID,
		Status:    model.StatusActive,
		ExpiresAt: time.Now().Add(ttl),
	}

	for _, h := range holds {
		if err := s.stockRepo.Reserve(ctx, q, h.ProductID, h.Size, h.Quantity, stockmodel.ReferenceReservation, res.ID); err != nil {
			return nil, err
		}
		res.Items = append(res.Items, model.ReservationItem{
			ProductID: h.ProductID,
			Size:      h.Size,
			Quantity:  h.Quantity,
		})
	}

	if err := s.repo.Create(ctx, q, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (s *reservationService) Confirm(ctx context.Context, q database.Querier, reservationID uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, q, reservationID, model.StatusConfirmed)
}

func (s *reservationService) Release(ctx context.Context, reservationID uuid.UUID) error {
	res, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if !res.IsActive() {
		// Already moved; the stock was handled by whoever moved it.
		return nil
	}

	return s.releaseInTx(ctx, res, model.StatusCancelled)
}

// releaseInTx flips the ledger row and returns every hold in one
// transaction. The status update's active-only filter makes concurrent
// sweeps race safely: the loser sees ErrReservationNotActive and the
// stock is released exactly once.
func (s *reservationService) releaseInTx(ctx context.Context, res *model.Reservation, status string) error {
	return database.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.repo.UpdateStatus(ctx, tx, res.ID, status); err != nil {
			return err
		}
		for _, item := range res.Items {
			if err := s.stockRepo.Release(ctx, tx, item.ProductID, item.Size, item.Quantity, stockmodel.ReferenceReservation, res.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *reservationService) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.repo.ListExpiredActive(ctx, time.Now(), s.maxActiveAge, s.expiryBatch)
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range due {
		res := &due[i]

		bound, err := s.orders.HasOrderForSession(ctx, res.SessionID)
		if err != nil {
			logger.Error("Failed to check order binding for reservation", err, map[string]interface{}{
				"reservation_id": res.ID,
				"session_id":     res.SessionID,
			})
			continue
		}
		if bound {
			// Ownership transferred to the order; its own lifecycle
			// releases or confirms the stock.
			continue
		}

		if err := s.releaseInTx(ctx, res, model.StatusExpired); err != nil {
			if errors.Is(err, model.ErrReservationNotActive) {
				continue
			}
			logger.Error("Failed to expire reservation", err, map[string]interface{}{
				"reservation_id": res.ID,
			})
			continue
		}

		released++
	}

	if released > 0 {
		logger.Info("Expired reservations released", map[string]interface{}{
			"count": released,
		})
	}

	return released, nil
}
