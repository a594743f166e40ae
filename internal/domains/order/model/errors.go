package model

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrAlreadyCommitted = errors.New("order already committed")
	ErrNotCommittable   = errors.New("order is not in a committable state")
	ErrEmptyCart        = errors.New("order has no line items")
	ErrMissingProductID = errors.New("line item has no resolvable product id")
	ErrDuplicateKey     = errors.New("duplicate order key")
)

// Error codes for the typed OrderError.
const (
	CodeValidation    = "VALIDATION"
	CodeConflict      = "CONFLICT"
	CodeCommitFailed  = "COMMIT_FAILED"
	CodePendingReview = "PENDING_REVIEW"
)

// OrderError carries a stable code alongside the underlying cause.
type OrderError struct {
	Code    string
	Message string
	Err     error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

func NewOrderError(code, message string, err error) *OrderError {
	return &OrderError{Code: code, Message: message, Err: err}
}
