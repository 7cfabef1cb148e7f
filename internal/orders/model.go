package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/storefront/internal/domain"
)

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

// Order is an immutable snapshot taken at checkout time. Later catalog or
// price edits never affect it; only status fields change afterwards.
type Order struct {
	ID            uuid.UUID            `json:"id"`
	Status        domain.OrderStatus   `json:"status"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	Currency      string               `json:"currency"`
	Subtotal      int                  `json:"subtotal"`
	Shipping      int                  `json:"shipping"`
	Tax           int                  `json:"tax"`
	Total         int                  `json:"total"`
	Customer      Customer             `json:"customer"`
	ShippingAddr  Address              `json:"shipping_address"`
	ProviderRef   string               `json:"provider_ref,omitempty"`
	ExpiresAt     time.Time            `json:"expires_at"`
	CreatedAt     time.Time            `json:"created_at"`
	Items         []Item               `json:"items"`
}

type Item struct {
	VariantID    uuid.UUID `json:"variant_id"`
	SKU          string    `json:"sku"`
	ProductName  string    `json:"product_name"`
	VariantTitle string    `json:"variant_title"`
	UnitPrice    int       `json:"unit_price"`
	Quantity     int       `json:"quantity"`
	LineTotal    int       `json:"line_total"`
}

type Summary struct {
	ID        uuid.UUID          `json:"id"`
	Status    domain.OrderStatus `json:"status"`
	Total     int                `json:"total"`
	CreatedAt time.Time          `json:"created_at"`
}
