package job

import (
	"context"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/domains/webhook/service"
)

// ReconcileHandler runs the periodic gateway reconciliation passes.
type ReconcileHandler struct {
	reconciler *service.Reconciler
}

func NewReconcileHandler(reconciler *service.Reconciler) *ReconcileHandler {
	return &ReconcileHandler{reconciler: reconciler}
}

func (h *ReconcileHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	return h.reconciler.Run(ctx)
}
