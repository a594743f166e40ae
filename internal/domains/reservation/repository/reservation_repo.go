package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domains/reservation/model"
	"storefront-backend/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, q database.Querier, res *model.Reservation) error {
	if len(res.Items) == 0 {
		return model.ErrEmptyReservation
	}

	query := `
		INSERT INTO reservations (id, session_id, status, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW(), $4, NOW())
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		res.ID,
		res.SessionID,
		res.Status,
		res.ExpiresAt,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	itemQuery := `
		INSERT INTO reservation_items (id, reservation_id, product_id, size, quantity)
		VALUES ($1, $2, $3, $4, $5)
	`

	for i := range res.Items {
		item := &res.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.ReservationID = res.ID

		_, err := q.Exec(ctx, itemQuery,
			item.ID,
			item.ReservationID,
			item.ProductID,
			item.Size,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert reservation item: %w", err)
		}
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := `
		SELECT id, session_id, status, created_at, expires_at, updated_at
		FROM reservations
		WHERE id = $1
	`

	var res model.Reservation
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&res.ID,
		&res.SessionID,
		&res.Status,
		&res.CreatedAt,
		&res.ExpiresAt,
		&res.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	if err := r.loadItems(ctx, &res); err != nil {
		return nil, err
	}

	return &res, nil
}

func (r *postgresRepository) GetActiveBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.Reservation, error) {
	query := `
		SELECT id, session_id, status, created_at, expires_at, updated_at
		FROM reservations
		WHERE session_id = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`

	var res model.Reservation
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&res.ID,
		&res.SessionID,
		&res.Status,
		&res.CreatedAt,
		&res.ExpiresAt,
		&res.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation by session: %w", err)
	}

	if err := r.loadItems(ctx, &res); err != nil {
		return nil, err
	}

	return &res, nil
}

// UpdateStatus only leaves the active state. A reservation that was
// already confirmed, expired or cancelled stays where it is, which
// makes concurrent expiry sweeps and releases safe.
func (r *postgresRepository) UpdateStatus(ctx context.Context, q database.Querier, id uuid.UUID, status string) error {
	query := `
		UPDATE reservations
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`

	tag, err := q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM reservations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check reservation existence: %w", err)
		}
		if !exists {
			return model.ErrReservationNotFound
		}
		return model.ErrReservationNotActive
	}

	return nil
}

func (r *postgresRepository) ListExpiredActive(ctx context.Context, now time.Time, maxAge time.Duration, limit int) ([]model.Reservation, error) {
	query := `
		SELECT id, session_id, status, created_at, expires_at, updated_at
		FROM reservations
		WHERE status = 'active'
		  AND (expires_at < $1 OR created_at < $2)
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, now, now.Add(-maxAge), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}
	defer rows.Close()

	var reservations []model.Reservation
	for rows.Next() {
		var res model.Reservation
		err := rows.Scan(
			&res.ID,
			&res.SessionID,
			&res.Status,
			&res.CreatedAt,
			&res.ExpiresAt,
			&res.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}

	for i := range reservations {
		if err := r.loadItems(ctx, &reservations[i]); err != nil {
			return nil, err
		}
	}

	return reservations, nil
}

func (r *postgresRepository) loadItems(ctx context.Context, res *model.Reservation) error {
	query := `
		SELECT id, reservation_id, product_id, size, quantity
		FROM reservation_items
		WHERE reservation_id = $1
		ORDER BY product_id, size
	`

	rows, err := r.pool.Query(ctx, query, res.ID)
	if err != nil {
		return fmt.Errorf("failed to query reservation items: %w", err)
	}
	defer rows.Close()

	res.Items = res.Items[:0]
	for rows.Next() {
		var item model.ReservationItem
		if err := rows.Scan(&item.ID, &item.ReservationID, &item.ProductID, &item.Size, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan reservation item: %w", err)
		}
		res.Items = append(res.Items, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating reservation items: %w", err)
	}

	return nil
}
