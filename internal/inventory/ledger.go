package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Ledger is the single authority over on_hand/reserved counters. Every
// mutation is serialized per variant; `0 <= reserved <= on_hand` holds at all
// times, so available-to-sell (on_hand - reserved) never goes negative.
type Ledger interface {
	// Reserve atomically checks available-to-sell and holds qty units.
	// On shortage it returns *domain.InsufficientStockError and mutates
	// nothing.
	Reserve(ctx context.Context, variantID uuid.UUID, qty int) error

	// Release returns qty reserved units to available stock, floored at 0.
	Release(ctx context.Context, variantID uuid.UUID, qty int) error

	// Commit turns a reservation into a permanent stock decrement on
	// confirmed payment: both reserved and on_hand drop by qty.
	Commit(ctx context.Context, variantID uuid.UUID, qty int) error

	// Adjust applies an administrative delta to on_hand. It fails with
	// domain.ErrNegativeStock when the result would undercut outstanding
	// reservations.
	Adjust(ctx context.Context, variantID uuid.UUID, delta int) (onHand, reserved int, err error)

	// Levels reads the current counters.
	Levels(ctx context.Context, variantID uuid.UUID) (onHand, reserved int, err error)
}
