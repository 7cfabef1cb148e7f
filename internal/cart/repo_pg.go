package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopcore/storefront/internal/domain"
)

type PgRepo struct{ DB *pgxpool.Pool }

func (r *PgRepo) CreateCart(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	if err := r.DB.QueryRow(ctx, `INSERT INTO carts DEFAULT VALUES RETURNING id`).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *PgRepo) CartStatus(ctx context.Context, cartID uuid.UUID) (domain.CartStatus, error) {
	var s string
	if err := r.DB.QueryRow(ctx, `SELECT status FROM carts WHERE id=$1`, cartID).Scan(&s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return domain.CartStatus(s), nil
}

func (r *PgRepo) UpsertLine(ctx context.Context, cartID, variantID uuid.UUID, qty int) error {
	_, err := r.DB.Exec(ctx, `
INSERT INTO cart_items (cart_id, variant_id, quantity)
VALUES ($1,$2,$3)
ON CONFLICT (cart_id, variant_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
`, cartID, variantID, qty)
	return err
}

func (r *PgRepo) DeleteLine(ctx context.Context, cartID, variantID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND variant_id=$2`, cartID, variantID)
	return err
}

func (r *PgRepo) Lines(ctx context.Context, cartID uuid.UUID) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
SELECT variant_id, quantity
FROM cart_items
WHERE cart_id=$1
ORDER BY created_at ASC
`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.VariantID, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
