package job

import (
	"context"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/domains/stock/service"
	"storefront-backend/pkg/logger"
)

// RepairDriftHandler runs the safety reconciler that lowers reserved
// counters back to the ledger. It never changes physical quantity.
type RepairDriftHandler struct {
	stockService service.ServiceInterface
}

func NewRepairDriftHandler(stockService service.ServiceInterface) *RepairDriftHandler {
	return &RepairDriftHandler{stockService: stockService}
}

func (h *RepairDriftHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	repaired, err := h.stockService.RepairDrift(ctx)
	if err != nil {
		logger.Error("Stock drift repair failed", err, nil)
		return err
	}

	if repaired > 0 {
		logger.Warn("Stock drift repair completed", map[string]interface{}{
			"repaired": repaired,
		})
	}

	return nil
}
