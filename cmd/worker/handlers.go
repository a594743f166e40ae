package main

import (
	"github.com/hibiken/asynq"

	checkoutJob "storefront-backend/internal/domains/checkout/job"
	reservationJob "storefront-backend/internal/domains/reservation/job"
	stockJob "storefront-backend/internal/domains/stock/job"
	webhookJob "storefront-backend/internal/domains/webhook/job"
	"storefront-backend/internal/shared"
	"storefront-backend/pkg/container"
)

// HandlerRegistry holds every task handler the worker serves.
type HandlerRegistry struct {
	webhookDispatch   *webhookJob.DispatchHandler
	webhookPump       *webhookJob.ProcessQueueHandler
	webhookRetrySweep *webhookJob.RetrySweepHandler
	webhookDLQSweep   *webhookJob.DLQSweepHandler
	paymentReconcile  *webhookJob.ReconcileHandler
	reservationExpiry *reservationJob.ExpireReservationsHandler
	sessionExpiry     *checkoutJob.ExpireSessionsHandler
	stockDriftRepair  *stockJob.RepairDriftHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		webhookDispatch:   webhookJob.NewDispatchHandler(c.WebhookQueue),
		webhookPump:       webhookJob.NewProcessQueueHandler(c.WebhookQueue),
		webhookRetrySweep: webhookJob.NewRetrySweepHandler(c.WebhookQueue),
		webhookDLQSweep:   webhookJob.NewDLQSweepHandler(c.WebhookQueue),
		paymentReconcile:  webhookJob.NewReconcileHandler(c.Reconciler),
		reservationExpiry: reservationJob.NewExpireReservationsHandler(c.ReservationService),
		sessionExpiry:     checkoutJob.NewExpireSessionsHandler(c.CheckoutService),
		stockDriftRepair:  stockJob.NewRepairDriftHandler(c.StockService),
	}
}

func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeWebhookDispatch, h.webhookDispatch.ProcessTask)
	mux.HandleFunc(shared.TypeWebhookProcessQueue, h.webhookPump.ProcessTask)
	mux.HandleFunc(shared.TypeWebhookRetrySweep, h.webhookRetrySweep.ProcessTask)
	mux.HandleFunc(shared.TypeWebhookDLQSweep, h.webhookDLQSweep.ProcessTask)
	mux.HandleFunc(shared.TypePaymentReconcile, h.paymentReconcile.ProcessTask)
	mux.HandleFunc(shared.TypeReservationExpire, h.reservationExpiry.ProcessTask)
	mux.HandleFunc(shared.TypeCheckoutExpireSession, h.sessionExpiry.ProcessTask)
	mux.HandleFunc(shared.TypeStockRepairDrift, h.stockDriftRepair.ProcessTask)
}
