package job

import (
	"context"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/domains/checkout/service"
	"storefront-backend/pkg/logger"
)

// ExpireSessionsHandler marks abandoned checkout sessions expired.
// Sessions bound to a draft order are left alone.
type ExpireSessionsHandler struct {
	checkoutService service.ServiceInterface
}

func NewExpireSessionsHandler(checkoutService service.ServiceInterface) *ExpireSessionsHandler {
	return &ExpireSessionsHandler{checkoutService: checkoutService}
}

func (h *ExpireSessionsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	expired, err := h.checkoutService.ExpireAbandoned(ctx)
	if err != nil {
		logger.Error("Session expiry sweep failed", err, nil)
		return err
	}

	if expired > 0 {
		logger.Info("Session expiry sweep completed", map[string]interface{}{
			"expired": expired,
		})
	}

	return nil
}
