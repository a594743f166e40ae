package model

import "errors"

var (
	ErrSessionNotFound  = errors.New("checkout session not found")
	ErrSessionNotOpen   = errors.New("checkout session is not open")
	ErrProductInactive  = errors.New("product is not available for purchase")
	ErrSizeNotAvailable = errors.New("requested size is not available")
)
