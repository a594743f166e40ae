package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domains/checkout/model"
	"storefront-backend/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, q database.Querier, session *model.CheckoutSession) error {
	query := `
		INSERT INTO checkout_sessions (
			id, user_email, items, subtotal, shipping_cost, total,
			shipping_info, status, stock_reserved, reservation_id,
			source, expires_at, timeout_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		session.ID,
		session.UserEmail,
		session.Items,
		session.Subtotal,
		session.ShippingCost,
		session.Total,
		session.ShippingInfo,
		session.Status,
		session.StockReserved,
		session.ReservationID,
		session.Source,
		session.ExpiresAt,
		session.TimeoutAt,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert checkout session: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CheckoutSession, error) {
	query := `
		SELECT id, user_email, items, subtotal, shipping_cost, total,
		       shipping_info, status, stock_reserved, reservation_id,
		       source, expires_at, timeout_at, created_at, updated_at
		FROM checkout_sessions
		WHERE id = $1
	`

	var s model.CheckoutSession
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserEmail,
		&s.Items,
		&s.Subtotal,
		&s.ShippingCost,
		&s.Total,
		&s.ShippingInfo,
		&s.Status,
		&s.StockReserved,
		&s.ReservationID,
		&s.Source,
		&s.ExpiresAt,
		&s.TimeoutAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}

	return &s, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, q database.Querier, id uuid.UUID, status string) error {
	query := `
		UPDATE checkout_sessions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'awaiting_payment')
	`

	tag, err := q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM checkout_sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check session existence: %w", err)
		}
		if !exists {
			return model.ErrSessionNotFound
		}
		return model.ErrSessionNotOpen
	}

	return nil
}

func (r *postgresRepository) ListAbandoned(ctx context.Context, now time.Time, limit int) ([]model.CheckoutSession, error) {
	query := `
		SELECT id, user_email, items, subtotal, shipping_cost, total,
		       shipping_info, status, stock_reserved, reservation_id,
		       source, expires_at, timeout_at, created_at, updated_at
		FROM checkout_sessions
		WHERE status IN ('pending', 'awaiting_payment')
		  AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list abandoned sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.CheckoutSession
	for rows.Next() {
		var s model.CheckoutSession
		err := rows.Scan(
			&s.ID,
			&s.UserEmail,
			&s.Items,
			&s.Subtotal,
			&s.ShippingCost,
			&s.Total,
			&s.ShippingInfo,
			&s.Status,
			&s.StockReserved,
			&s.ReservationID,
			&s.Source,
			&s.ExpiresAt,
			&s.TimeoutAt,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}
