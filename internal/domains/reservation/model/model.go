package model

import (
	"time"

	"github.com/google/uuid"
)

// Reservation statuses.
const (
	StatusActive    = "active"
	StatusConfirmed = "confirmed"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// Reservation is a time-bounded hold tying stock counters to a checkout
// session. For every active reservation the sum of its item quantities
// is reflected in product_stocks.reserved_quantity.
type Reservation struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	SessionID uuid.UUID         `json:"session_id" db:"session_id"`
	Status    string            `json:"status" db:"status"`
	Items     []ReservationItem `json:"items"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	ExpiresAt time.Time         `json:"expires_at" db:"expires_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

type ReservationItem struct {
	ID            uuid.UUID `json:"id" db:"id"`
	ReservationID uuid.UUID `json:"reservation_id" db:"reservation_id"`
	ProductID     uuid.UUID `json:"product_id" db:"product_id"`
	Size          string    `json:"size" db:"size"`
	Quantity      int       `json:"quantity" db:"quantity"`
}

// Hold is the request shape for creating a reservation.
type Hold struct {
	ProductID uuid.UUID `json:"productId"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
}

func (r *Reservation) IsActive() bool {
	return r.Status == StatusActive
}

func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == StatusActive && now.After(r.ExpiresAt)
}
