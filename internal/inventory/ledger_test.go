package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/shopcore/storefront/internal/domain"
)

func TestMemoryLedger_Reserve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	vid := uuid.New()

	t.Run("reserves within available", func(t *testing.T) {
		l := NewMemoryLedger()
		l.SetOnHand(vid, 5)

		require.NoError(t, l.Reserve(ctx, vid, 3))

		onHand, reserved, err := l.Levels(ctx, vid)
		require.NoError(t, err)
		require.Equal(t, 5, onHand)
		require.Equal(t, 3, reserved)
	})

	t.Run("fails on shortage without mutation", func(t *testing.T) {
		l := NewMemoryLedger()
		l.SetOnHand(vid, 5)
		require.NoError(t, l.Reserve(ctx, vid, 4))

		err := l.Reserve(ctx, vid, 2)
		require.True(t, domain.IsInsufficientStock(err))

		var ise *domain.InsufficientStockError
		require.ErrorAs(t, err, &ise)
		require.Equal(t, vid, ise.VariantID)
		require.Equal(t, 2, ise.Requested)
		require.Equal(t, 1, ise.Available)

		_, reserved, err := l.Levels(ctx, vid)
		require.NoError(t, err)
		require.Equal(t, 4, reserved)
	})

	t.Run("unknown variant", func(t *testing.T) {
		l := NewMemoryLedger()
		require.ErrorIs(t, l.Reserve(ctx, uuid.New(), 1), domain.ErrVariantNotFound)
	})
}

// Two concurrent checkouts each want 3 of a variant with 5 on hand: exactly
// one wins the reservation.
func TestMemoryLedger_ConcurrentReserve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	vid := uuid.New()
	l := NewMemoryLedger()
	l.SetOnHand(vid, 5)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.Reserve(ctx, vid, 3)
		}()
	}
	wg.Wait()
	close(results)

	var ok, short int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case domain.IsInsufficientStock(err):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, short)

	onHand, reserved, err := l.Levels(ctx, vid)
	require.NoError(t, err)
	require.Equal(t, 5, onHand)
	require.Equal(t, 3, reserved)
}

// Hammer one variant with mixed operations and check the ledger invariant
// 0 <= reserved <= on_hand afterwards.
func TestMemoryLedger_InvariantUnderInterleaving(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	vid := uuid.New()
	l := NewMemoryLedger()
	l.SetOnHand(vid, 100)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := l.Reserve(ctx, vid, 2); err == nil {
					if j%2 == 0 {
						_ = l.Release(ctx, vid, 2)
					} else {
						_ = l.Commit(ctx, vid, 2)
					}
				}
			}
		}()
	}
	wg.Wait()

	onHand, reserved, err := l.Levels(ctx, vid)
	require.NoError(t, err)
	require.GreaterOrEqual(t, reserved, 0)
	require.LessOrEqual(t, reserved, onHand)
	require.GreaterOrEqual(t, onHand, 0)
}

func TestMemoryLedger_ReleaseAndCommit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	vid := uuid.New()

	t.Run("release floors at zero", func(t *testing.T) {
		l := NewMemoryLedger()
		l.SetOnHand(vid, 5)
		require.NoError(t, l.Reserve(ctx, vid, 2))
		require.NoError(t, l.Release(ctx, vid, 10))

		onHand, reserved, err := l.Levels(ctx, vid)
		require.NoError(t, err)
		require.Equal(t, 5, onHand)
		require.Equal(t, 0, reserved)
	})

	t.Run("commit decrements both counters", func(t *testing.T) {
		l := NewMemoryLedger()
		l.SetOnHand(vid, 5)
		require.NoError(t, l.Reserve(ctx, vid, 2))
		require.NoError(t, l.Commit(ctx, vid, 2))

		onHand, reserved, err := l.Levels(ctx, vid)
		require.NoError(t, err)
		require.Equal(t, 3, onHand)
		require.Equal(t, 0, reserved)
	})
}

func TestMemoryLedger_Adjust(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	vid := uuid.New()

	t.Run("applies delta", func(t *testing.T) {
		l := NewMemoryLedger()
		l.SetOnHand(vid, 5)

		onHand, reserved, err := l.Adjust(ctx, vid, -2)
		require.NoError(t, err)
		require.Equal(t, 3, onHand)
		require.Equal(t, 0, reserved)
	})

	t.Run("rejects undercutting reservations", func(t *testing.T) {
		l := NewMemoryLedger()
		l.SetOnHand(vid, 5)
		require.NoError(t, l.Reserve(ctx, vid, 4))

		_, _, err := l.Adjust(ctx, vid, -2)
		require.ErrorIs(t, err, domain.ErrNegativeStock)

		onHand, reserved, err := l.Levels(ctx, vid)
		require.NoError(t, err)
		require.Equal(t, 5, onHand)
		require.Equal(t, 4, reserved)
	})
}
