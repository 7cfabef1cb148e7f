package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopcore/storefront/internal/domain"
	"github.com/shopcore/storefront/internal/inventory"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateFromCart inserts the order snapshot and flips the source cart to
// converted in one transaction. If the cart is not open anymore the whole
// insert rolls back with domain.ErrCartNotOpen.
func (r *Repo) CreateFromCart(ctx context.Context, o Order, cartID uuid.UUID) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
UPDATE carts SET status='converted', updated_at=now()
WHERE id=$1 AND status='open'
`, cartID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCartNotOpen
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO orders (id, status, payment_status, currency,
                    subtotal, shipping, tax, total,
                    customer_name, customer_phone, customer_email,
                    shipping_address, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`, o.ID, o.Status, o.PaymentStatus, o.Currency,
		o.Subtotal, o.Shipping, o.Tax, o.Total,
		o.Customer.Name, o.Customer.Phone, o.Customer.Email,
		o.ShippingAddr, o.ExpiresAt,
	); err != nil {
		return err
	}

	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, line_no, variant_id, sku, product_name, variant_title, unit_price, quantity, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, o.ID, i+1, it.VariantID, it.SKU, it.ProductName, it.VariantTitle, it.UnitPrice, it.Quantity, it.LineTotal); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repo) SetProviderRef(ctx context.Context, orderID uuid.UUID, ref string) error {
	ct, err := r.DB.Exec(ctx, `
UPDATE orders SET provider_ref=$2, updated_at=now() WHERE id=$1
`, orderID, ref)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Settle finalizes a confirmed payment in one transaction: claim the pending
// order, turn every line's reservation into a permanent stock decrement, and
// mark the order completed. The guarded first UPDATE is the serialization
// point between a payment callback, a customer cancel and the expiry sweep;
// running the stock commits in the same transaction means a crash can never
// leave a claimed order whose reservation was not committed.
func (r *Repo) Settle(ctx context.Context, orderID uuid.UUID) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
UPDATE orders SET status='paid', payment_status='captured', updated_at=now()
WHERE id=$1 AND status='pending_payment'
`, orderID)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}

	rows, err := tx.Query(ctx, `
SELECT variant_id, quantity FROM order_items WHERE order_id=$1 ORDER BY line_no ASC
`, orderID)
	if err != nil {
		return false, err
	}
	type line struct {
		variantID uuid.UUID
		qty       int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.variantID, &l.qty); err != nil {
			rows.Close()
			return false, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}

	for _, l := range lines {
		if err := inventory.CommitIn(ctx, tx, l.variantID, l.qty); err != nil {
			return false, err
		}
	}

	if _, err := tx.Exec(ctx, `
UPDATE orders SET status='completed', updated_at=now() WHERE id=$1
`, orderID); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

func (r *Repo) ClaimCancel(ctx context.Context, orderID uuid.UUID) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
UPDATE orders SET status='cancelled', updated_at=now()
WHERE id=$1 AND status='pending_payment'
`, orderID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) ClaimExpire(ctx context.Context, orderID uuid.UUID) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
UPDATE orders SET status='expired', updated_at=now()
WHERE id=$1 AND status='pending_payment'
`, orderID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// MarkPaymentAuthorized records the provider-side authorization on an order
// still waiting for capture. It only moves payment_status forward; the order
// itself stays pending until the capture settles it.
func (r *Repo) MarkPaymentAuthorized(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, `
UPDATE orders SET payment_status='authorized', updated_at=now()
WHERE id=$1 AND status='pending_payment' AND payment_status='created'
`, orderID)
	return err
}

// MarkPaymentFailed reports whether this call performed the transition, so
// compensating stock releases run exactly once.
func (r *Repo) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
UPDATE orders SET status='failed', payment_status='failed', updated_at=now()
WHERE id=$1 AND status='pending_payment'
`, orderID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) FindExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx, `
SELECT id FROM orders
WHERE status='pending_payment' AND expires_at <= $1
ORDER BY expires_at ASC
LIMIT $2
`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, orderID uuid.UUID) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
SELECT id, status, payment_status, currency, subtotal, shipping, tax, total,
       customer_name, customer_phone, customer_email, shipping_address,
       COALESCE(provider_ref, ''), expires_at, created_at
FROM orders WHERE id=$1
`, orderID).Scan(
		&o.ID, &o.Status, &o.PaymentStatus, &o.Currency, &o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
		&o.Customer.Name, &o.Customer.Phone, &o.Customer.Email, &o.ShippingAddr,
		&o.ProviderRef, &o.ExpiresAt, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, domain.ErrNotFound
		}
		return Order{}, err
	}
	o.Items, err = r.Items(ctx, o.ID)
	return o, err
}

func (r *Repo) GetByProviderRef(ctx context.Context, ref string) (Order, error) {
	var id uuid.UUID
	err := r.DB.QueryRow(ctx, `SELECT id FROM orders WHERE provider_ref=$1`, ref).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, domain.ErrUnknownTransaction
		}
		return Order{}, err
	}
	return r.Get(ctx, id)
}

func (r *Repo) Items(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
SELECT variant_id, sku, product_name, variant_title, unit_price, quantity, line_total
FROM order_items WHERE order_id=$1
ORDER BY line_no ASC
`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.VariantID, &it.SKU, &it.ProductName, &it.VariantTitle, &it.UnitPrice, &it.Quantity, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repo) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `
SELECT id, status, total, created_at
FROM orders
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Status, &s.Total, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
