package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopcore/storefront/internal/domain"
)

// PgStore reads products, variants and stock levels from Postgres.
type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) GetVariant(ctx context.Context, id uuid.UUID) (Variant, error) {
	row := s.DB.QueryRow(ctx, `
SELECT v.id, v.product_id, p.name, v.sku, v.title, v.size, v.color, v.price,
       COALESCE(i.on_hand, 0), COALESCE(i.reserved, 0)
FROM product_variants v
JOIN products p ON p.id = v.product_id
LEFT JOIN inventory i ON i.variant_id = v.id
WHERE v.id = $1
`, id)
	var v Variant
	if err := row.Scan(
		&v.ID, &v.ProductID, &v.ProductName, &v.SKU, &v.Title, &v.Size, &v.Color, &v.Price,
		&v.OnHand, &v.Reserved,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Variant{}, domain.ErrVariantNotFound
		}
		return Variant{}, err
	}
	return v, nil
}

func (s *PgStore) ListProducts(ctx context.Context, onlyActive bool) ([]Product, error) {
	where := "TRUE"
	if onlyActive {
		where = "p.status = 'active'"
	}
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
SELECT
  p.id, p.slug, p.name, p.description, p.status, p.created_at, p.updated_at,
  v.id, v.product_id, v.sku, v.title, v.size, v.color, v.price,
  COALESCE(i.on_hand, 0), COALESCE(i.reserved, 0)
FROM products p
JOIN product_variants v ON v.product_id = p.id
LEFT JOIN inventory i ON i.variant_id = v.id
WHERE %s
ORDER BY p.created_at DESC, v.created_at ASC
`, where))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := map[uuid.UUID]*Product{}
	order := make([]uuid.UUID, 0, 64)
	for rows.Next() {
		var p Product
		var v Variant
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt,
			&v.ID, &v.ProductID, &v.SKU, &v.Title, &v.Size, &v.Color, &v.Price,
			&v.OnHand, &v.Reserved,
		); err != nil {
			return nil, err
		}
		existing := byID[p.ID]
		if existing == nil {
			p.Variants = []Variant{v}
			byID[p.ID] = &p
			order = append(order, p.ID)
		} else {
			existing.Variants = append(existing.Variants, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

func (s *PgStore) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	rows, err := s.DB.Query(ctx, `
SELECT
  p.id, p.slug, p.name, p.description, p.status, p.created_at, p.updated_at,
  v.id, v.product_id, v.sku, v.title, v.size, v.color, v.price,
  COALESCE(i.on_hand, 0), COALESCE(i.reserved, 0)
FROM products p
JOIN product_variants v ON v.product_id = p.id
LEFT JOIN inventory i ON i.variant_id = v.id
WHERE p.slug = $1
ORDER BY v.created_at ASC
`, slug)
	if err != nil {
		return Product{}, err
	}
	defer rows.Close()

	var p Product
	first := true
	for rows.Next() {
		var v Variant
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt,
			&v.ID, &v.ProductID, &v.SKU, &v.Title, &v.Size, &v.Color, &v.Price,
			&v.OnHand, &v.Reserved,
		); err != nil {
			return Product{}, err
		}
		if first {
			p.Variants = []Variant{}
			first = false
		}
		p.Variants = append(p.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return Product{}, err
	}
	if first {
		return Product{}, domain.ErrNotFound
	}
	return p, nil
}
