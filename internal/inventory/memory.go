package inventory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/shopcore/storefront/internal/domain"
)

// MemoryLedger keeps counters in memory with one mutex per variant, so
// contention on one variant never blocks another. It backs unit tests and
// single-node dev setups.
type MemoryLedger struct {
	mu       sync.RWMutex
	variants map[uuid.UUID]*counters
}

type counters struct {
	mu       sync.Mutex
	onHand   int
	reserved int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{variants: make(map[uuid.UUID]*counters)}
}

// SetOnHand seeds or replaces a variant's physical stock.
func (l *MemoryLedger) SetOnHand(variantID uuid.UUID, onHand int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.variants[variantID]
	if c == nil {
		c = &counters{}
		l.variants[variantID] = c
	}
	c.mu.Lock()
	c.onHand = onHand
	c.mu.Unlock()
}

func (l *MemoryLedger) get(variantID uuid.UUID) (*counters, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c := l.variants[variantID]
	if c == nil {
		return nil, domain.ErrVariantNotFound
	}
	return c, nil
}

func (l *MemoryLedger) Reserve(ctx context.Context, variantID uuid.UUID, qty int) error {
	c, err := l.get(variantID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onHand-c.reserved < qty {
		return &domain.InsufficientStockError{
			VariantID: variantID,
			Requested: qty,
			Available: c.onHand - c.reserved,
		}
	}
	c.reserved += qty
	return nil
}

func (l *MemoryLedger) Release(ctx context.Context, variantID uuid.UUID, qty int) error {
	c, err := l.get(variantID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reserved -= qty
	if c.reserved < 0 {
		c.reserved = 0
	}
	return nil
}

func (l *MemoryLedger) Commit(ctx context.Context, variantID uuid.UUID, qty int) error {
	c, err := l.get(variantID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHand -= qty
	c.reserved -= qty
	if c.reserved < 0 {
		c.reserved = 0
	}
	return nil
}

func (l *MemoryLedger) Adjust(ctx context.Context, variantID uuid.UUID, delta int) (int, int, error) {
	c, err := l.get(variantID)
	if err != nil {
		return 0, 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	newOnHand := c.onHand + delta
	if newOnHand < c.reserved || newOnHand < 0 {
		return 0, 0, domain.ErrNegativeStock
	}
	c.onHand = newOnHand
	return c.onHand, c.reserved, nil
}

func (l *MemoryLedger) Levels(ctx context.Context, variantID uuid.UUID) (int, int, error) {
	c, err := l.get(variantID)
	if err != nil {
		return 0, 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onHand, c.reserved, nil
}
