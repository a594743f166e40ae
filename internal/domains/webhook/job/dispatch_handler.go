package job

import (
	"context"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/domains/webhook/service"
	"storefront-backend/internal/shared/utils"
)

// DispatchHandler is the push path: intake enqueues one task per
// accepted webhook so processing starts without waiting for the sweep.
type DispatchHandler struct {
	queue *service.QueueManager
}

func NewDispatchHandler(queue *service.QueueManager) *DispatchHandler {
	return &DispatchHandler{queue: queue}
}

func (h *DispatchHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.DispatchPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return err
	}

	return h.queue.ProcessOne(ctx, payload.WebhookID)
}
