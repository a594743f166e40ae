package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"storefront-backend/internal/domains/stock/model"
	"storefront-backend/internal/domains/stock/repository"
	"storefront-backend/pkg/database"
	"storefront-backend/pkg/logger"
)

type stockService struct {
	repo repository.RepositoryInterface
	pool database.DB
}

func NewService(repo repository.RepositoryInterface, pool database.DB) ServiceInterface {
	return &stockService{repo: repo, pool: pool}
}

func (s *stockService) GetAvailability(ctx context.Context, productID uuid.UUID) ([]model.ProductStock, error) {
	return s.repo.GetByProductIDs(ctx, []uuid.UUID{productID})
}

// RepairDrift lowers reserved counters back to the ledger ground truth.
// Each row is repaired in its own transaction so one bad row does not
// block the rest of the sweep. Quantity is never touched here.
func (s *stockService) RepairDrift(ctx context.Context) (int, error) {
	drifted, err := s.repo.FindDrifted(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, d := range drifted {
		err := database.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
			return s.repo.ResetReserved(ctx, tx, d.ProductID, d.Size, d.LedgerHeld)
		})
		if err != nil {
			logger.Error("Failed to repair reserved drift", err, map[string]interface{}{
				"product_id": d.ProductID,
				"size":       d.Size,
			})
			continue
		}

		logger.Warn("Repaired reserved drift", map[string]interface{}{
			"product_id":      d.ProductID,
			"size":            d.Size,
			"reserved_before": d.ReservedQuantity,
			"ledger_held":     d.LedgerHeld,
		})
		repaired++
	}

	return repaired, nil
}
