package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domains/payment/model"
	"storefront-backend/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, q database.Querier, session *model.PaymentSession) error {
	query := `
		INSERT INTO payment_sessions (
			id, gateway_txn_id, checkout_session_id, order_id, user_email,
			items, shipping_info, subtotal, shipping_cost, total,
			amount_minor, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		)
		ON CONFLICT (gateway_txn_id) DO NOTHING
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		session.ID,
		session.GatewayTxnID,
		session.CheckoutSessionID,
		session.OrderID,
		session.UserEmail,
		session.Items,
		session.ShippingInfo,
		session.Subtotal,
		session.ShippingCost,
		session.Total,
		session.AmountMinor,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		// ON CONFLICT DO NOTHING returns no row when the snapshot for
		// this transaction already exists; that is not an error.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to insert payment session: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByTxnID(ctx context.Context, gatewayTxnID string) (*model.PaymentSession, error) {
	query := `
		SELECT
			id, gateway_txn_id, checkout_session_id, order_id, user_email,
			items, shipping_info, subtotal, shipping_cost, total,
			amount_minor, created_at, updated_at
		FROM payment_sessions
		WHERE gateway_txn_id = $1
	`

	var s model.PaymentSession
	err := r.pool.QueryRow(ctx, query, gatewayTxnID).Scan(
		&s.ID,
		&s.GatewayTxnID,
		&s.CheckoutSessionID,
		&s.OrderID,
		&s.UserEmail,
		&s.Items,
		&s.ShippingInfo,
		&s.Subtotal,
		&s.ShippingCost,
		&s.Total,
		&s.AmountMinor,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPaymentSessionNotFound
		}
		return nil, fmt.Errorf("failed to get payment session: %w", err)
	}

	return &s, nil
}

func (r *postgresRepository) BindOrder(ctx context.Context, gatewayTxnID string, orderID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payment_sessions SET order_id = $2, updated_at = NOW() WHERE gateway_txn_id = $1`,
		gatewayTxnID, orderID,
	)
	if err != nil {
		return fmt.Errorf("failed to bind order to payment session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPaymentSessionNotFound
	}
	return nil
}
