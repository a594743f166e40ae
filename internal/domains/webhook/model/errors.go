package model

import "errors"

var (
	ErrWebhookNotFound   = errors.New("webhook not found")
	ErrDuplicateDelivery = errors.New("webhook with this idempotency key already stored")
	ErrUnauthorized      = errors.New("webhook authorization failed")
	ErrUnresolvable      = errors.New("webhook matched no order, payment session, or checkout session")
	ErrEmergencyRejected = errors.New("emergency order creation rejected by guards")
)
