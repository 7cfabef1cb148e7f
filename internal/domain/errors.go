package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrVariantNotFound     = errors.New("variant not found")
	ErrCartNotOpen         = errors.New("cart is not open")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidState        = errors.New("invalid order state")
	ErrInvalidSignature    = errors.New("invalid payment signature")
	ErrUnknownTransaction  = errors.New("unknown transaction reference")
	ErrNegativeStock       = errors.New("on_hand would drop below reserved")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// InsufficientStockError names the variant that is short so callers can
// report exactly which item blocked a reservation.
type InsufficientStockError struct {
	VariantID uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// IsInsufficientStock reports whether err is a stock shortage, regardless of
// wrapping.
func IsInsufficientStock(err error) bool {
	var ise *InsufficientStockError
	return errors.As(err, &ise)
}
