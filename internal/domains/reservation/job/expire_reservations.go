package job

import (
	"context"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/domains/reservation/service"
	"storefront-backend/pkg/logger"
)

// ExpireReservationsHandler releases expired holds on the periodic
// sweep. Reservations whose session is bound to a draft order are
// skipped; the order lifecycle owns that stock.
type ExpireReservationsHandler struct {
	reservationService service.ServiceInterface
}

func NewExpireReservationsHandler(reservationService service.ServiceInterface) *ExpireReservationsHandler {
	return &ExpireReservationsHandler{reservationService: reservationService}
}

func (h *ExpireReservationsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	released, err := h.reservationService.ExpireDue(ctx)
	if err != nil {
		logger.Error("Reservation expiry sweep failed", err, nil)
		return err
	}

	if released > 0 {
		logger.Info("Reservation expiry sweep completed", map[string]interface{}{
			"released": released,
		})
	}

	return nil
}
