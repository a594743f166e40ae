package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domains/webhook/model"
	"storefront-backend/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

const webhookColumns = `
	id, provider, headers, raw_body, idempotency_key, gateway_txn_id,
	event, state, amount_minor, priority, correlation_id,
	processed, processing, processing_started_at, processed_at, result,
	retry_count, retry_after, dead_letter, last_error,
	requires_manual_processing, received_at, updated_at
`

func (r *postgresRepository) Insert(ctx context.Context, w *model.RawWebhook) error {
	query := `
		INSERT INTO raw_webhooks (
			id, provider, headers, raw_body, idempotency_key, gateway_txn_id,
			event, state, amount_minor, priority, correlation_id,
			received_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		)
		RETURNING received_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		w.ID,
		w.Provider,
		w.Headers,
		w.RawBody,
		w.IdempotencyKey,
		w.GatewayTxnID,
		w.Event,
		w.State,
		w.AmountMinor,
		w.Priority,
		w.CorrelationID,
	).Scan(&w.ReceivedAt, &w.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Concurrent delivery of the same event lost the insert race.
			return model.ErrDuplicateDelivery
		}
		return fmt.Errorf("failed to insert raw webhook: %w", err)
	}

	return nil
}

// FindByKey returns the newest row for an idempotency key regardless of
// processing state, so intake can answer a duplicate delivery with the
// row that won the insert race.
func (r *postgresRepository) FindByKey(ctx context.Context, key string) (*model.RawWebhook, error) {
	query := `
		SELECT ` + webhookColumns + `
		FROM raw_webhooks
		WHERE idempotency_key = $1
		ORDER BY received_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, key)
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RawWebhook, error) {
	return r.getOne(ctx, `SELECT `+webhookColumns+` FROM raw_webhooks WHERE id = $1`, id)
}

func (r *postgresRepository) FindProcessedByKey(ctx context.Context, key string) (*model.RawWebhook, error) {
	query := `
		SELECT ` + webhookColumns + `
		FROM raw_webhooks
		WHERE idempotency_key = $1 AND processed = TRUE
		ORDER BY processed_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, key)
}

func (r *postgresRepository) ExistsProcessedForTxn(ctx context.Context, gatewayTxnID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM raw_webhooks WHERE gateway_txn_id = $1 AND processed = TRUE)`,
		gatewayTxnID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check processed webhook: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) ClaimPending(ctx context.Context, limit int) ([]model.RawWebhook, error) {
	selectQuery := `
		SELECT ` + webhookColumns + `
		FROM raw_webhooks
		WHERE processed = FALSE
		  AND processing = FALSE
		  AND dead_letter = FALSE
		  AND (retry_after IS NULL OR retry_after <= NOW())
		ORDER BY priority DESC, received_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	return r.claim(ctx, selectQuery, limit)
}

func (r *postgresRepository) ClaimDeadLetters(ctx context.Context, limit int) ([]model.RawWebhook, error) {
	selectQuery := `
		SELECT ` + webhookColumns + `
		FROM raw_webhooks
		WHERE processed = FALSE
		  AND processing = FALSE
		  AND dead_letter = TRUE
		ORDER BY received_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	return r.claim(ctx, selectQuery, limit)
}

// claim selects rows under row locks and flips the processing latch in
// the same transaction, so two workers never hold the same webhook.
func (r *postgresRepository) claim(ctx context.Context, selectQuery string, limit int) ([]model.RawWebhook, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) ([]model.RawWebhook, error) {
		rows, err := tx.Query(ctx, selectQuery, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to select claimable webhooks: %w", err)
		}

		webhooks, err := scanWebhooks(rows)
		if err != nil {
			return nil, err
		}
		if len(webhooks) == 0 {
			return nil, nil
		}

		ids := make([]uuid.UUID, 0, len(webhooks))
		for i := range webhooks {
			ids = append(ids, webhooks[i].ID)
		}

		_, err = tx.Exec(ctx, `
			UPDATE raw_webhooks
			SET processing = TRUE, processing_started_at = NOW(), updated_at = NOW()
			WHERE id = ANY($1)
		`, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to latch webhooks: %w", err)
		}

		return webhooks, nil
	})
}

func (r *postgresRepository) MarkProcessed(ctx context.Context, id uuid.UUID, result string) error {
	query := `
		UPDATE raw_webhooks
		SET
			processed = TRUE,
			processing = FALSE,
			processed_at = NOW(),
			result = $2,
			dead_letter = FALSE,
			requires_manual_processing = FALSE,
			retry_after = NULL,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, result)
	if err != nil {
		return fmt.Errorf("failed to mark webhook processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrWebhookNotFound
	}

	return nil
}

func (r *postgresRepository) ScheduleRetry(ctx context.Context, id uuid.UUID, lastError string, retryAfter time.Time) error {
	query := `
		UPDATE raw_webhooks
		SET
			processing = FALSE,
			retry_count = retry_count + 1,
			retry_after = $2,
			last_error = $3,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, retryAfter, lastError)
	if err != nil {
		return fmt.Errorf("failed to schedule webhook retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrWebhookNotFound
	}

	return nil
}

func (r *postgresRepository) MoveToDeadLetter(ctx context.Context, id uuid.UUID, lastError string) error {
	query := `
		UPDATE raw_webhooks
		SET
			processing = FALSE,
			dead_letter = TRUE,
			requires_manual_processing = TRUE,
			last_error = $2,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, lastError)
	if err != nil {
		return fmt.Errorf("failed to dead-letter webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrWebhookNotFound
	}

	return nil
}

func (r *postgresRepository) ListDeadLetters(ctx context.Context, limit int) ([]model.RawWebhook, error) {
	query := `
		SELECT ` + webhookColumns + `
		FROM raw_webhooks
		WHERE dead_letter = TRUE AND processed = FALSE
		ORDER BY received_at ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}

	return scanWebhooks(rows)
}

func (r *postgresRepository) ListOrphanSuccesses(ctx context.Context, window time.Duration, limit int) ([]model.RawWebhook, error) {
	query := `
		SELECT ` + webhookColumns + `
		FROM raw_webhooks w
		WHERE w.event = 'success'
		  AND w.processed = TRUE
		  AND w.received_at > NOW() - $1::interval
		  AND NOT EXISTS (
			SELECT 1 FROM orders o WHERE o.gateway_txn_id = w.gateway_txn_id
		  )
		ORDER BY w.received_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, window.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphan webhooks: %w", err)
	}

	return scanWebhooks(rows)
}

func (r *postgresRepository) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE raw_webhooks
		SET processing = FALSE, updated_at = NOW()
		WHERE processing = TRUE
		  AND processed = FALSE
		  AND processing_started_at < NOW() - $1::interval
	`

	tag, err := r.pool.Exec(ctx, query, olderThan.String())
	if err != nil {
		return 0, fmt.Errorf("failed to release stale webhooks: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *postgresRepository) getOne(ctx context.Context, query string, args ...any) (*model.RawWebhook, error) {
	var w model.RawWebhook
	err := scanWebhook(r.pool.QueryRow(ctx, query, args...), &w)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrWebhookNotFound
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return &w, nil
}

func scanWebhooks(rows pgx.Rows) ([]model.RawWebhook, error) {
	defer rows.Close()

	var webhooks []model.RawWebhook
	for rows.Next() {
		var w model.RawWebhook
		if err := scanWebhook(rows, &w); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhooks: %w", err)
	}

	return webhooks, nil
}

func scanWebhook(row pgx.Row, w *model.RawWebhook) error {
	return row.Scan(
		&w.ID,
		&w.Provider,
		&w.Headers,
		&w.RawBody,
		&w.IdempotencyKey,
		&w.GatewayTxnID,
		&w.Event,
		&w.State,
		&w.AmountMinor,
		&w.Priority,
		&w.CorrelationID,
		&w.Processed,
		&w.Processing,
		&w.ProcessingStartedAt,
		&w.ProcessedAt,
		&w.Result,
		&w.RetryCount,
		&w.RetryAfter,
		&w.DeadLetter,
		&w.LastError,
		&w.RequiresManualProcessing,
		&w.ReceivedAt,
		&w.UpdatedAt,
	)
}
