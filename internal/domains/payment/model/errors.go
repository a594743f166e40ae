package model

import "errors"

var (
	ErrPaymentSessionNotFound = errors.New("payment session not found")
	ErrGatewayUnavailable     = errors.New("payment gateway unavailable")
)
