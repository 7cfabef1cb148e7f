package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the read-only catalog surface the core consumes. The core never
// mutates catalog data; the admin service is the only writer.
type Store interface {
	GetVariant(ctx context.Context, id uuid.UUID) (Variant, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	ListProducts(ctx context.Context, onlyActive bool) ([]Product, error)
}

type Product struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Variants    []Variant `json:"variants"`
}

type Variant struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	SKU         string    `json:"sku"`
	Title       string    `json:"title"`
	Size        string    `json:"size"`
	Color       string    `json:"color"`
	// Price is in integer minor currency units; money never crosses a
	// boundary as a float.
	Price    int `json:"price"`
	OnHand   int `json:"on_hand"`
	Reserved int `json:"reserved"`
}

// Available is the sellable quantity.
func (v Variant) Available() int { return v.OnHand - v.Reserved }
