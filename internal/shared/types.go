package shared

// Asynq task type names. One constant per background task so handlers
// and schedulers never disagree on spelling.
const (
	TypeWebhookDispatch     = "webhook:dispatch"
	TypeWebhookProcessQueue = "webhook:process_queue"
	TypeWebhookRetrySweep   = "webhook:retry_sweep"
	TypeWebhookDLQSweep     = "webhook:dlq_sweep"

	TypePaymentReconcile = "payment:reconcile"

	TypeReservationExpire     = "reservation:expire"
	TypeCheckoutExpireSession = "checkout:expire_sessions"
	TypeStockRepairDrift      = "stock:repair_drift"
)

// Asynq queue names in priority order.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)
