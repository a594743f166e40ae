package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-backend/internal/domains/stock/model"
	"storefront-backend/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

// Reserve holds units with a single conditional update. The availability
// predicate lives in the WHERE clause so two racing reservations for the
// last unit serialize at the row: exactly one sees RowsAffected == 1.
func (r *postgresRepository) Reserve(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refType string, refID uuid.UUID) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}

	query := `
		UPDATE product_stocks
		SET
			reserved_quantity = reserved_quantity + $3,
			version = version + 1,
			updated_at = NOW()
		WHERE product_id = $1
		  AND size = $2
		  AND quantity - reserved_quantity >= $3
		RETURNING reserved_quantity
	`

	var reservedAfter int
	err := q.QueryRow(ctx, query, productID, size, qty).Scan(&reservedAfter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifyMiss(ctx, q, productID, size, model.ErrOutOfStock)
		}
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	return r.insertMovement(ctx, q, &model.StockMovement{
		ProductID:      productID,
		Size:           size,
		MovementType:   model.MovementReserve,
		Quantity:       qty,
		ReservedBefore: reservedAfter - qty,
		ReservedAfter:  reservedAfter,
		ReferenceType:  refType,
		ReferenceID:    refID,
		Notes:          fmt.Sprintf("Reserved %d units for %s", qty, refType),
	})
}

// Confirm consumes a hold on payment success: both counters move down
// together, guarded by the same conditional filter.
func (r *postgresRepository) Confirm(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refID uuid.UUID) error {
	if qty <= 0 {
		return fmt.Errorf("confirm quantity must be positive, got %d", qty)
	}

	query := `
		UPDATE product_stocks
		SET
			quantity = quantity - $3,
			reserved_quantity = reserved_quantity - $3,
			version = version + 1,
			updated_at = NOW()
		WHERE product_id = $1
		  AND size = $2
		  AND reserved_quantity >= $3
		  AND quantity >= $3
		RETURNING reserved_quantity
	`

	var reservedAfter int
	err := q.QueryRow(ctx, query, productID, size, qty).Scan(&reservedAfter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifyMiss(ctx, q, productID, size, model.ErrInsufficientReserved)
		}
		return fmt.Errorf("failed to confirm stock: %w", err)
	}

	return r.insertMovement(ctx, q, &model.StockMovement{
		ProductID:      productID,
		Size:           size,
		MovementType:   model.MovementConfirm,
		Quantity:       qty,
		ReservedBefore: reservedAfter + qty,
		ReservedAfter:  reservedAfter,
		ReferenceType:  model.ReferenceOrder,
		ReferenceID:    refID,
		Notes:          fmt.Sprintf("Confirmed %d units on payment", qty),
	})
}

// Release unwinds a hold. The clamp makes repeated releases safe: the
// counter never goes below zero no matter how many times a worker and a
// cancellation race each other.
func (r *postgresRepository) Release(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refType string, refID uuid.UUID) error {
	if qty <= 0 {
		return fmt.Errorf("release quantity must be positive, got %d", qty)
	}

	query := `
		UPDATE product_stocks
		SET
			reserved_quantity = GREATEST(reserved_quantity - $3, 0),
			version = version + 1,
			updated_at = NOW()
		WHERE product_id = $1
		  AND size = $2
		RETURNING reserved_quantity
	`

	var reservedAfter int
	err := q.QueryRow(ctx, query, productID, size, qty).Scan(&reservedAfter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NewStockNotFoundError(productID, size)
		}
		return fmt.Errorf("failed to release stock: %w", err)
	}

	return r.insertMovement(ctx, q, &model.StockMovement{
		ProductID:      productID,
		Size:           size,
		MovementType:   model.MovementRelease,
		Quantity:       -qty,
		ReservedBefore: reservedAfter + qty,
		ReservedAfter:  reservedAfter,
		ReferenceType:  refType,
		ReferenceID:    refID,
		Notes:          fmt.Sprintf("Released %d reserved units", qty),
	})
}

// Restock undoes a Confirm during commit rollback. Only quantity comes
// back: the reservation was already consumed, so re-incrementing
// reserved would double-hold the units.
func (r *postgresRepository) Restock(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refID uuid.UUID) error {
	if qty <= 0 {
		return fmt.Errorf("restock quantity must be positive, got %d", qty)
	}

	query := `
		UPDATE product_stocks
		SET
			quantity = quantity + $3,
			version = version + 1,
			updated_at = NOW()
		WHERE product_id = $1
		  AND size = $2
		RETURNING reserved_quantity
	`

	var reservedAfter int
	err := q.QueryRow(ctx, query, productID, size, qty).Scan(&reservedAfter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NewStockNotFoundError(productID, size)
		}
		return fmt.Errorf("failed to restock: %w", err)
	}

	return r.insertMovement(ctx, q, &model.StockMovement{
		ProductID:      productID,
		Size:           size,
		MovementType:   model.MovementRollback,
		Quantity:       qty,
		ReservedBefore: reservedAfter,
		ReservedAfter:  reservedAfter,
		ReferenceType:  model.ReferenceOrder,
		ReferenceID:    refID,
		Notes:          fmt.Sprintf("Restocked %d units after commit rollback", qty),
	})
}

// classifyMiss distinguishes "row missing" from "predicate failed" after
// a conditional update matched nothing.
func (r *postgresRepository) classifyMiss(ctx context.Context, q database.Querier, productID uuid.UUID, size string, predicateErr error) error {
	var exists bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM product_stocks WHERE product_id = $1 AND size = $2)`
	if err := q.QueryRow(ctx, checkQuery, productID, size).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check stock existence: %w", err)
	}
	if !exists {
		return model.NewStockNotFoundError(productID, size)
	}
	return predicateErr
}

func (r *postgresRepository) insertMovement(ctx context.Context, q database.Querier, m *model.StockMovement) error {
	query := `
		INSERT INTO stock_movements (
			id, product_id, size, movement_type, quantity,
			reserved_before, reserved_after,
			reference_type, reference_id, notes, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW()
		)
	`

	_, err := q.Exec(ctx, query,
		uuid.New(),
		m.ProductID,
		m.Size,
		m.MovementType,
		m.Quantity,
		m.ReservedBefore,
		m.ReservedAfter,
		m.ReferenceType,
		m.ReferenceID,
		m.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to log stock movement: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByProductAndSize(ctx context.Context, productID uuid.UUID, size string) (*model.ProductStock, error) {
	query := `
		SELECT id, product_id, size, quantity, reserved_quantity,
		       available_quantity, version, updated_at
		FROM product_stocks
		WHERE product_id = $1 AND size = $2
	`

	var s model.ProductStock
	err := r.pool.QueryRow(ctx, query, productID, size).Scan(
		&s.ID,
		&s.ProductID,
		&s.Size,
		&s.Quantity,
		&s.ReservedQuantity,
		&s.AvailableQuantity,
		&s.Version,
		&s.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewStockNotFoundError(productID, size)
		}
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}

	return &s, nil
}

func (r *postgresRepository) GetByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]model.ProductStock, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, product_id, size, quantity, reserved_quantity,
		       available_quantity, version, updated_at
		FROM product_stocks
		WHERE product_id = ANY($1)
		ORDER BY product_id, size
	`

	rows, err := r.pool.Query(ctx, query, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	var stocks []model.ProductStock
	for rows.Next() {
		var s model.ProductStock
		err := rows.Scan(
			&s.ID,
			&s.ProductID,
			&s.Size,
			&s.Quantity,
			&s.ReservedQuantity,
			&s.AvailableQuantity,
			&s.Version,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock rows: %w", err)
	}

	return stocks, nil
}

// FindDrifted compares the reserved counter against the sum of holds in
// active reservations. Drift appears after crashes between a counter
// update and its ledger write.
func (r *postgresRepository) FindDrifted(ctx context.Context) ([]model.DriftedStock, error) {
	query := `
		SELECT
			ps.product_id,
			ps.size,
			ps.reserved_quantity,
			COALESCE(SUM(ri.quantity) FILTER (WHERE res.status = 'active'), 0) AS ledger_held
		FROM product_stocks ps
		LEFT JOIN reservation_items ri
			ON ri.product_id = ps.product_id AND ri.size = ps.size
		LEFT JOIN reservations res
			ON res.id = ri.reservation_id
		WHERE ps.reserved_quantity > 0
		GROUP BY ps.product_id, ps.size, ps.reserved_quantity
		HAVING ps.reserved_quantity > COALESCE(SUM(ri.quantity) FILTER (WHERE res.status = 'active'), 0)
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query drifted stocks: %w", err)
	}
	defer rows.Close()

	var drifted []model.DriftedStock
	for rows.Next() {
		var d model.DriftedStock
		if err := rows.Scan(&d.ProductID, &d.Size, &d.ReservedQuantity, &d.LedgerHeld); err != nil {
			return nil, fmt.Errorf("failed to scan drifted stock: %w", err)
		}
		drifted = append(drifted, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drifted rows: %w", err)
	}

	return drifted, nil
}

// ResetReserved lowers reserved_quantity to the ledger value. The
// conditional filter refuses to raise it and refuses to race a
// concurrent legitimate reserve.
func (r *postgresRepository) ResetReserved(ctx context.Context, q database.Querier, productID uuid.UUID, size string, target int) error {
	if target < 0 {
		return fmt.Errorf("reset target must be non-negative, got %d", target)
	}

	query := `
		UPDATE product_stocks
		SET
			reserved_quantity = $3,
			version = version + 1,
			updated_at = NOW()
		WHERE product_id = $1
		  AND size = $2
		  AND reserved_quantity > $3
	`

	var before int
	err := q.QueryRow(ctx, `SELECT reserved_quantity FROM product_stocks WHERE product_id = $1 AND size = $2`, productID, size).Scan(&before)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NewStockNotFoundError(productID, size)
		}
		return fmt.Errorf("failed to read reserved before repair: %w", err)
	}

	tag, err := q.Exec(ctx, query, productID, size, target)
	if err != nil {
		return fmt.Errorf("failed to reset reserved quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Counter already at or below target; a concurrent release or
		// confirm fixed it first.
		return nil
	}

	return r.insertMovement(ctx, q, &model.StockMovement{
		ProductID:      productID,
		Size:           size,
		MovementType:   model.MovementDriftRepair,
		Quantity:       target - before,
		ReservedBefore: before,
		ReservedAfter:  target,
		ReferenceType:  model.ReferenceSystem,
		ReferenceID:    uuid.Nil,
		Notes:          fmt.Sprintf("Repaired reserved drift from %d to %d", before, target),
	})
}
