package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopcore/storefront/internal/domain"
)

// PgLedger serializes counter mutations with a row lock per variant, so
// concurrent callers on the same variant queue up while unrelated variants
// proceed in parallel.
type PgLedger struct{ DB *pgxpool.Pool }

func (l *PgLedger) Reserve(ctx context.Context, variantID uuid.UUID, qty int) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var onHand, reserved int
	if err := tx.QueryRow(ctx, `
SELECT on_hand, reserved FROM inventory WHERE variant_id=$1 FOR UPDATE
`, variantID).Scan(&onHand, &reserved); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrVariantNotFound
		}
		return err
	}
	if onHand-reserved < qty {
		return &domain.InsufficientStockError{
			VariantID: variantID,
			Requested: qty,
			Available: onHand - reserved,
		}
	}
	if _, err := tx.Exec(ctx, `
UPDATE inventory SET reserved = reserved + $2, updated_at = now() WHERE variant_id=$1
`, variantID, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (l *PgLedger) Release(ctx context.Context, variantID uuid.UUID, qty int) error {
	ct, err := l.DB.Exec(ctx, `
UPDATE inventory
SET reserved = GREATEST(0, reserved - $2), updated_at = now()
WHERE variant_id=$1
`, variantID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrVariantNotFound
	}
	return nil
}

// Execer is the slice of pgx a single statement needs; both *pgxpool.Pool
// and pgx.Tx satisfy it, so callers can run the commit inside their own
// transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CommitIn turns qty reserved units into a permanent stock decrement using
// the given executor. It is the one place the commit statement lives; the
// order settlement transaction runs it through its pgx.Tx.
func CommitIn(ctx context.Context, q Execer, variantID uuid.UUID, qty int) error {
	ct, err := q.Exec(ctx, `
UPDATE inventory
SET on_hand  = on_hand - $2,
    reserved = GREATEST(0, reserved - $2),
    updated_at = now()
WHERE variant_id=$1
`, variantID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrVariantNotFound
	}
	return nil
}

func (l *PgLedger) Commit(ctx context.Context, variantID uuid.UUID, qty int) error {
	return CommitIn(ctx, l.DB, variantID, qty)
}

func (l *PgLedger) Adjust(ctx context.Context, variantID uuid.UUID, delta int) (int, int, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	var onHand, reserved int
	if err := tx.QueryRow(ctx, `
SELECT on_hand, reserved FROM inventory WHERE variant_id=$1 FOR UPDATE
`, variantID).Scan(&onHand, &reserved); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, domain.ErrVariantNotFound
		}
		return 0, 0, err
	}
	newOnHand := onHand + delta
	if newOnHand < reserved || newOnHand < 0 {
		return 0, 0, domain.ErrNegativeStock
	}
	if _, err := tx.Exec(ctx, `
UPDATE inventory SET on_hand=$2, updated_at=now() WHERE variant_id=$1
`, variantID, newOnHand); err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return newOnHand, reserved, nil
}

func (l *PgLedger) Levels(ctx context.Context, variantID uuid.UUID) (int, int, error) {
	var onHand, reserved int
	err := l.DB.QueryRow(ctx, `
SELECT on_hand, reserved FROM inventory WHERE variant_id=$1
`, variantID).Scan(&onHand, &reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, domain.ErrVariantNotFound
	}
	return onHand, reserved, err
}
