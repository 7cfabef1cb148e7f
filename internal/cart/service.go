package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopcore/storefront/internal/catalog"
	"github.com/shopcore/storefront/internal/domain"
)

// Repository is the persistence the engine needs: cart rows and their
// insertion-ordered lines. One line per variant is a storage invariant
// (upsert on the (cart, variant) pair).
type Repository interface {
	CreateCart(ctx context.Context) (uuid.UUID, error)
	CartStatus(ctx context.Context, cartID uuid.UUID) (domain.CartStatus, error)
	UpsertLine(ctx context.Context, cartID, variantID uuid.UUID, qty int) error
	DeleteLine(ctx context.Context, cartID, variantID uuid.UUID) error
	Lines(ctx context.Context, cartID uuid.UUID) ([]Line, error)
}

// Line is a stored cart line: variant reference plus quantity, nothing else.
// Prices are never stored on the cart; they are read from the live catalog
// when the cart is viewed.
type Line struct {
	VariantID uuid.UUID
	Quantity  int
}

// View is the computed read model of a cart.
type View struct {
	ID       uuid.UUID         `json:"id"`
	Status   domain.CartStatus `json:"status"`
	Items    []ItemView        `json:"items"`
	Subtotal int               `json:"subtotal"`
}

type ItemView struct {
	VariantID    uuid.UUID `json:"variant_id"`
	SKU          string    `json:"sku"`
	ProductName  string    `json:"product_name"`
	VariantTitle string    `json:"variant_title"`
	UnitPrice    int       `json:"unit_price"`
	Quantity     int       `json:"quantity"`
	LineTotal    int       `json:"line_total"`
}

// Service is the cart engine. Carts are cheap and speculative: no stock is
// checked or reserved here, that happens only at checkout.
type Service struct {
	repo    Repository
	catalog catalog.Store
	maxQty  int
	logger  *zap.Logger
}

const defaultMaxLineQuantity = 20

func NewService(repo Repository, cat catalog.Store, maxQty int, logger *zap.Logger) *Service {
	if maxQty <= 0 {
		maxQty = defaultMaxLineQuantity
	}
	return &Service{repo: repo, catalog: cat, maxQty: maxQty, logger: logger}
}

func (s *Service) Create(ctx context.Context) (View, error) {
	id, err := s.repo.CreateCart(ctx)
	if err != nil {
		return View{}, fmt.Errorf("create cart: %w", err)
	}
	s.logger.Info("cart created", zap.String("cart_id", id.String()))
	return View{ID: id, Status: domain.CartOpen, Items: []ItemView{}}, nil
}

// UpsertItem sets the line quantity for a variant (last write wins) and
// returns the updated computed cart. Quantity 0 removes the line.
func (s *Service) UpsertItem(ctx context.Context, cartID, variantID uuid.UUID, qty int) (View, error) {
	if qty < 0 || qty > s.maxQty {
		return View{}, domain.ErrInvalidQuantity
	}

	status, err := s.repo.CartStatus(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	if status != domain.CartOpen {
		return View{}, domain.ErrCartNotOpen
	}

	if qty == 0 {
		if err := s.repo.DeleteLine(ctx, cartID, variantID); err != nil {
			return View{}, err
		}
		return s.Get(ctx, cartID)
	}

	if _, err := s.catalog.GetVariant(ctx, variantID); err != nil {
		return View{}, err
	}

	if err := s.repo.UpsertLine(ctx, cartID, variantID, qty); err != nil {
		return View{}, err
	}
	return s.Get(ctx, cartID)
}

// RemoveItem deletes a line if present; removing an absent line is not an
// error.
func (s *Service) RemoveItem(ctx context.Context, cartID, variantID uuid.UUID) (View, error) {
	status, err := s.repo.CartStatus(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	if status != domain.CartOpen {
		return View{}, domain.ErrCartNotOpen
	}
	if err := s.repo.DeleteLine(ctx, cartID, variantID); err != nil {
		return View{}, err
	}
	return s.Get(ctx, cartID)
}

// Get prices every line from the current catalog and sums the subtotal.
func (s *Service) Get(ctx context.Context, cartID uuid.UUID) (View, error) {
	status, err := s.repo.CartStatus(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	lines, err := s.repo.Lines(ctx, cartID)
	if err != nil {
		return View{}, err
	}

	view := View{ID: cartID, Status: status, Items: make([]ItemView, 0, len(lines))}
	for _, l := range lines {
		v, err := s.catalog.GetVariant(ctx, l.VariantID)
		if err != nil {
			return View{}, fmt.Errorf("price cart line %s: %w", l.VariantID, err)
		}
		item := ItemView{
			VariantID:    l.VariantID,
			SKU:          v.SKU,
			ProductName:  v.ProductName,
			VariantTitle: v.Title,
			UnitPrice:    v.Price,
			Quantity:     l.Quantity,
			LineTotal:    v.Price * l.Quantity,
		}
		view.Subtotal += item.LineTotal
		view.Items = append(view.Items, item)
	}
	return view, nil
}
