package model

import (
	"time"

	"github.com/google/uuid"
)

// ProductStock tracks physical and held units per (product, size).
// available_quantity is a generated column: quantity - reserved_quantity.
// Mutations go through the three repository primitives only.
type ProductStock struct {
	ID                uuid.UUID `json:"id" db:"id"`
	ProductID         uuid.UUID `json:"product_id" db:"product_id"`
	Size              string    `json:"size" db:"size"`
	Quantity          int       `json:"quantity" db:"quantity"`
	ReservedQuantity  int       `json:"reserved_quantity" db:"reserved_quantity"`
	AvailableQuantity int       `json:"available_quantity" db:"available_quantity"`
	Version           int64     `json:"version" db:"version"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Movement types recorded in stock_movements for every counter change.
const (
	MovementReserve     = "reserve"
	MovementConfirm     = "confirm"
	MovementRelease     = "release"
	MovementRollback    = "rollback"
	MovementDriftRepair = "drift_repair"
)

// Reference types linking a movement to its originator.
const (
	ReferenceReservation = "reservation"
	ReferenceOrder       = "order"
	ReferenceSystem      = "system"
)

// StockMovement is the audit row written in the same transaction as
// every counter mutation.
type StockMovement struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ProductID      uuid.UUID `json:"product_id" db:"product_id"`
	Size           string    `json:"size" db:"size"`
	MovementType   string    `json:"movement_type" db:"movement_type"`
	Quantity       int       `json:"quantity" db:"quantity"`
	ReservedBefore int       `json:"reserved_before" db:"reserved_before"`
	ReservedAfter  int       `json:"reserved_after" db:"reserved_after"`
	ReferenceType  string    `json:"reference_type" db:"reference_type"`
	ReferenceID    uuid.UUID `json:"reference_id" db:"reference_id"`
	Notes          string    `json:"notes" db:"notes"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// DriftedStock is a row whose reserved counter disagrees with the
// active reservation ledger.
type DriftedStock struct {
	ProductID        uuid.UUID `json:"product_id" db:"product_id"`
	Size             string    `json:"size" db:"size"`
	ReservedQuantity int       `json:"reserved_quantity" db:"reserved_quantity"`
	LedgerHeld       int       `json:"ledger_held" db:"ledger_held"`
}
