package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domains/order/model"
	"storefront-backend/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

const orderColumns = `
	id, order_code, idempotency_key, gateway_txn_id, checkout_session_id,
	status, payment_status, items, subtotal, shipping_cost, total,
	user_email, shipping_info, stock_reserved, stock_confirmed,
	requires_manual_processing, provider_payload, stock_commit_results,
	cancellation_reason, draft_created_at, confirmed_at, paid_at,
	cancelled_at, created_at, updated_at
`

func (r *postgresRepository) Create(ctx context.Context, q database.Querier, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, order_code, idempotency_key, gateway_txn_id, checkout_session_id,
			status, payment_status, items, subtotal, shipping_cost, total,
			user_email, shipping_info, stock_reserved, stock_confirmed,
			requires_manual_processing, provider_payload, stock_commit_results,
			draft_created_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		order.ID,
		order.OrderCode,
		order.IdempotencyKey,
		order.GatewayTxnID,
		order.CheckoutSessionID,
		order.Status,
		order.PaymentStatus,
		order.Items,
		order.Subtotal,
		order.ShippingCost,
		order.Total,
		order.UserEmail,
		order.ShippingInfo,
		order.StockReserved,
		order.StockConfirmed,
		order.RequiresManualProcessing,
		order.ProviderPayload,
		order.StockCommitResults,
		order.DraftCreatedAt,
	).Scan(&order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &DuplicateKeyError{Field: duplicateField(pgErr.ConstraintName)}
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// duplicateField maps a unique-index name to the order field it guards.
func duplicateField(constraint string) string {
	switch {
	case strings.Contains(constraint, "idempotency"):
		return "idempotency_key"
	case strings.Contains(constraint, "gateway_txn"):
		return "gateway_txn_id"
	case strings.Contains(constraint, "checkout_session"):
		return "checkout_session_id"
	case strings.Contains(constraint, "order_code"):
		return "order_code"
	default:
		return constraint
	}
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *postgresRepository) GetByOrderCode(ctx context.Context, code string) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_code = $1`, code)
}

func (r *postgresRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE idempotency_key = $1 AND status <> 'CANCELLED'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, key)
}

func (r *postgresRepository) GetByGatewayTxnID(ctx context.Context, txnID string) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_txn_id = $1`, txnID)
}

func (r *postgresRepository) GetByCheckoutSessionID(ctx context.Context, sessionID uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE checkout_session_id = $1`, sessionID)
}

func (r *postgresRepository) HasOrderForSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE checkout_session_id = $1)`,
		sessionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check order binding: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) MarkConfirmed(ctx context.Context, q database.Querier, id uuid.UUID, info *model.PaymentInfo, results []model.StockCommitResult) error {
	query := `
		UPDATE orders
		SET
			status = 'CONFIRMED',
			payment_status = 'PAID',
			stock_confirmed = TRUE,
			provider_payload = $2,
			stock_commit_results = $3,
			confirmed_at = NOW(),
			paid_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
		  AND status IN ('DRAFT', 'PENDING')
		  AND payment_status <> 'PAID'
	`

	payload := map[string]interface{}{
		"gatewayTxnId": info.GatewayTxnID,
		"amountMinor":  info.AmountMinor,
		"state":        info.State,
	}
	if info.Raw != nil {
		payload["raw"] = info.Raw
	}

	tag, err := q.Exec(ctx, query, id, payload, results)
	if err != nil {
		return fmt.Errorf("failed to confirm order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var paymentStatus string
		err := q.QueryRow(ctx, `SELECT payment_status FROM orders WHERE id = $1`, id).Scan(&paymentStatus)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrOrderNotFound
			}
			return fmt.Errorf("failed to inspect order after confirm miss: %w", err)
		}
		if paymentStatus == model.PaymentPaid {
			return model.ErrAlreadyCommitted
		}
		return model.ErrNotCommittable
	}

	return nil
}

func (r *postgresRepository) Cancel(ctx context.Context, q database.Querier, id uuid.UUID, reason string) error {
	query := `
		UPDATE orders
		SET
			status = 'CANCELLED',
			payment_status = 'FAILED',
			cancellation_reason = $2,
			cancelled_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
		  AND status IN ('DRAFT', 'PENDING')
	`

	tag, err := q.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return model.ErrOrderNotFound
		}
		return model.ErrNotCommittable
	}

	return nil
}

func (r *postgresRepository) MarkPendingReview(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE orders
		SET
			status = 'PENDING_REVIEW',
			requires_manual_processing = TRUE,
			cancellation_reason = $2,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark order pending review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) ListStuckDrafts(ctx context.Context, olderThan time.Duration, window time.Duration, limit int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status IN ('DRAFT', 'PENDING')
		  AND gateway_txn_id IS NOT NULL
		  AND draft_created_at < NOW() - $1::interval
		  AND draft_created_at > NOW() - $2::interval
		ORDER BY draft_created_at ASC
		LIMIT $3
	`

	return r.list(ctx, query, olderThan.String(), window.String(), limit)
}

func (r *postgresRepository) ListRecentWithTxn(ctx context.Context, window time.Duration, limit int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE gateway_txn_id IS NOT NULL
		  AND created_at > NOW() - $1::interval
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.list(ctx, query, window.String(), limit)
}

func (r *postgresRepository) ListByEmail(ctx context.Context, email string, limit int) ([]model.Order, error) {
	// Emergency orders stay hidden from customer history until an
	// operator enriches them.
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_email = $1
		  AND requires_manual_processing = FALSE
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.list(ctx, query, email, limit)
}

func (r *postgresRepository) getOne(ctx context.Context, query string, args ...any) (*model.Order, error) {
	var o model.Order
	err := r.scanOrder(r.pool.QueryRow(ctx, query, args...), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (r *postgresRepository) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := r.scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func (r *postgresRepository) scanOrder(row pgx.Row, o *model.Order) error {
	var itemsDoc []byte
	err := row.Scan(
		&o.ID,
		&o.OrderCode,
		&o.IdempotencyKey,
		&o.GatewayTxnID,
		&o.CheckoutSessionID,
		&o.Status,
		&o.PaymentStatus,
		&itemsDoc,
		&o.Subtotal,
		&o.ShippingCost,
		&o.Total,
		&o.UserEmail,
		&o.ShippingInfo,
		&o.StockReserved,
		&o.StockConfirmed,
		&o.RequiresManualProcessing,
		&o.ProviderPayload,
		&o.StockCommitResults,
		&o.CancellationReason,
		&o.DraftCreatedAt,
		&o.ConfirmedAt,
		&o.PaidAt,
		&o.CancelledAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return err
	}

	// Items are stored as the raw document and normalized on every load,
	// so rows written with legacy line shapes still commit.
	items, err := model.DecodeStoredLineItems(itemsDoc)
	if err != nil {
		return fmt.Errorf("order %s items: %w", o.ID, err)
	}
	o.Items = items
	return nil
}
