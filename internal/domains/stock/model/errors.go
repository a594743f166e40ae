package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrOutOfStock           = errors.New("insufficient stock available")
	ErrStockNotFound        = errors.New("stock record not found")
	ErrInsufficientReserved = errors.New("insufficient reserved quantity to confirm")
)

func NewStockNotFoundError(productID uuid.UUID, size string) error {
	return fmt.Errorf("%w: product %s size %s", ErrStockNotFound, productID, size)
}
