package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/webhook/model"
)

type RepositoryInterface interface {
	// Insert persists the raw callback before any processing. A row that
	// loses the idempotency-key insert race gets ErrDuplicateDelivery.
	Insert(ctx context.Context, webhook *model.RawWebhook) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.RawWebhook, error)
	FindProcessedByKey(ctx context.Context, idempotencyKey string) (*model.RawWebhook, error)

	// FindByKey matches any row for the key, processed or not.
	FindByKey(ctx context.Context, idempotencyKey string) (*model.RawWebhook, error)
	ExistsProcessedForTxn(ctx context.Context, gatewayTxnID string) (bool, error)

	// ClaimPending atomically latches up to limit unprocessed webhooks
	// (processing=true) in priority order and returns them. Rows
	// latched by another worker are skipped, not waited on.
	ClaimPending(ctx context.Context, limit int) ([]model.RawWebhook, error)

	// ClaimDeadLetters latches dead-lettered webhooks for a sweep
	// re-attempt.
	ClaimDeadLetters(ctx context.Context, limit int) ([]model.RawWebhook, error)

	// MarkProcessed finalizes a webhook and clears any dead-letter
	// state. At most one processed row per idempotency key.
	MarkProcessed(ctx context.Context, id uuid.UUID, result string) error

	// ScheduleRetry releases the processing latch and parks the webhook
	// until retryAfter.
	ScheduleRetry(ctx context.Context, id uuid.UUID, lastError string, retryAfter time.Time) error

	MoveToDeadLetter(ctx context.Context, id uuid.UUID, lastError string) error
	ListDeadLetters(ctx context.Context, limit int) ([]model.RawWebhook, error)

	// ListOrphanSuccesses returns processed success webhooks from the
	// window whose transaction id matches no order, for the
	// reconciler's orphan-payment pass.
	ListOrphanSuccesses(ctx context.Context, window time.Duration, limit int) ([]model.RawWebhook, error)

	// ReleaseStale frees processing latches older than the cutoff,
	// recovering from workers that died mid-flight.
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}
