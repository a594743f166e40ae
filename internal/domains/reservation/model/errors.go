package model

import "errors"

var (
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrReservationNotActive = errors.New("reservation is not active")
	ErrEmptyReservation     = errors.New("reservation must contain at least one item")
)
