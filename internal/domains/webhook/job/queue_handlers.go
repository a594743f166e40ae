package job

import (
	"context"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/domains/webhook/service"
)

// ProcessQueueHandler is the periodic pump over unprocessed webhooks.
type ProcessQueueHandler struct {
	queue *service.QueueManager
}

func NewProcessQueueHandler(queue *service.QueueManager) *ProcessQueueHandler {
	return &ProcessQueueHandler{queue: queue}
}

func (h *ProcessQueueHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	return h.queue.PumpPending(ctx)
}

// RetrySweepHandler frees processing latches abandoned by dead workers.
type RetrySweepHandler struct {
	queue *service.QueueManager
}

func NewRetrySweepHandler(queue *service.QueueManager) *RetrySweepHandler {
	return &RetrySweepHandler{queue: queue}
}

func (h *RetrySweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	return h.queue.RetrySweep(ctx)
}

// DLQSweepHandler re-attempts dead-lettered webhooks.
type DLQSweepHandler struct {
	queue *service.QueueManager
}

func NewDLQSweepHandler(queue *service.QueueManager) *DLQSweepHandler {
	return &DLQSweepHandler{queue: queue}
}

func (h *DLQSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	return h.queue.SweepDeadLetters(ctx)
}
