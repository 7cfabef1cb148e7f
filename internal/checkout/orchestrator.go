package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shopcore/storefront/internal/cart"
	"github.com/shopcore/storefront/internal/clock"
	"github.com/shopcore/storefront/internal/domain"
	"github.com/shopcore/storefront/internal/inventory"
	kafkax "github.com/shopcore/storefront/internal/kafka"
	"github.com/shopcore/storefront/internal/orders"
	"github.com/shopcore/storefront/internal/payment"
)

// CartEngine is the read side of the cart the orchestrator consumes.
type CartEngine interface {
	Get(ctx context.Context, cartID uuid.UUID) (cart.View, error)
}

// OrderStore is the order persistence shared by the orchestrator and the
// expiry sweeper.
type OrderStore interface {
	CreateFromCart(ctx context.Context, o orders.Order, cartID uuid.UUID) error
	SetProviderRef(ctx context.Context, orderID uuid.UUID, ref string) error
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (bool, error)
	ClaimCancel(ctx context.Context, orderID uuid.UUID) (bool, error)
	ClaimExpire(ctx context.Context, orderID uuid.UUID) (bool, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	Items(ctx context.Context, orderID uuid.UUID) ([]orders.Item, error)
}

type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

type CustomerInput struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

type AddressInput struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country"`
}

type Input struct {
	CartID   uuid.UUID     `json:"cart_id"`
	Customer CustomerInput `json:"customer"`
	Address  AddressInput  `json:"shipping_address"`
}

type Result struct {
	OrderID     uuid.UUID `json:"order_id"`
	Amount      int       `json:"amount"`
	Currency    string    `json:"currency"`
	ProviderRef string    `json:"provider_transaction_ref"`
}

// Options carries the pricing and lifecycle knobs; shipping and tax default
// to zero and stay pluggable.
type Options struct {
	Currency     string
	ShippingFlat int
	TaxRateBps   int
	CheckoutTTL  time.Duration
	Service      string
}

// Orchestrator converts an open cart into an immutable order: reserve every
// line (all-or-nothing), snapshot, then hand off to the payment provider.
type Orchestrator struct {
	carts    CartEngine
	orders   OrderStore
	ledger   inventory.Ledger
	provider payment.Provider
	producer Publisher
	clock    clock.Clock
	validate *validator.Validate
	opts     Options
	logger   *zap.Logger
}

func NewOrchestrator(carts CartEngine, store OrderStore, ledger inventory.Ledger, provider payment.Provider, producer Publisher, clk clock.Clock, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.CheckoutTTL <= 0 {
		opts.CheckoutTTL = 30 * time.Minute
	}
	return &Orchestrator{
		carts:    carts,
		orders:   store,
		ledger:   ledger,
		provider: provider,
		producer: producer,
		clock:    clk,
		validate: validator.New(),
		opts:     opts,
		logger:   logger,
	}
}

func (o *Orchestrator) Checkout(ctx context.Context, in Input) (Result, error) {
	if err := o.validate.Struct(in); err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if in.CartID == uuid.Nil {
		return Result{}, fmt.Errorf("%w: cart_id is required", domain.ErrInvalidInput)
	}

	view, err := o.carts.Get(ctx, in.CartID)
	if err != nil {
		return Result{}, err
	}
	if view.Status != domain.CartOpen {
		return Result{}, domain.ErrCartNotOpen
	}
	if len(view.Items) == 0 {
		return Result{}, fmt.Errorf("%w: cart is empty", domain.ErrInvalidInput)
	}

	// Reserve every line before anything becomes durable. On the first
	// shortage roll back what this attempt reserved so far; checkout never
	// leaves a partial reservation behind.
	reserved := make([]cart.ItemView, 0, len(view.Items))
	for _, it := range view.Items {
		if err := o.ledger.Reserve(ctx, it.VariantID, it.Quantity); err != nil {
			o.releaseItems(ctx, reserved)
			return Result{}, err
		}
		reserved = append(reserved, it)
	}

	now := o.clock.Now()
	subtotal := view.Subtotal
	shipping := o.opts.ShippingFlat
	taxBase := subtotal + shipping
	tax := (taxBase*o.opts.TaxRateBps + 5000) / 10000
	total := subtotal + shipping + tax

	ord := orders.Order{
		ID:            uuid.New(),
		Status:        domain.OrderPendingPayment,
		PaymentStatus: domain.PaymentCreated,
		Currency:      o.opts.Currency,
		Subtotal:      subtotal,
		Shipping:      shipping,
		Tax:           tax,
		Total:         total,
		Customer: orders.Customer{
			Name:  in.Customer.Name,
			Phone: in.Customer.Phone,
			Email: in.Customer.Email,
		},
		ShippingAddr: orders.Address{
			Line1:      in.Address.Line1,
			Line2:      in.Address.Line2,
			City:       in.Address.City,
			State:      in.Address.State,
			PostalCode: in.Address.PostalCode,
			Country:    in.Address.Country,
		},
		ExpiresAt: now.Add(o.opts.CheckoutTTL),
		Items:     snapshotItems(view.Items),
	}

	if err := o.orders.CreateFromCart(ctx, ord, in.CartID); err != nil {
		o.releaseItems(ctx, reserved)
		return Result{}, err
	}

	providerRef, err := o.provider.CreateTransaction(ctx, total, o.opts.Currency, ord.ID.String())
	if err != nil {
		// claim first: if the expiry sweep already took this order (a
		// provider call outliving the TTL) it also released the stock, and
		// releasing again would eat another order's reservation
		claimed, ferr := o.orders.MarkPaymentFailed(ctx, ord.ID)
		if ferr != nil {
			o.logger.Error("mark payment failed", zap.String("order_id", ord.ID.String()), zap.Error(ferr))
		}
		if claimed {
			o.releaseItems(ctx, reserved)
		}
		return Result{}, fmt.Errorf("create provider transaction: %w", err)
	}
	if err := o.orders.SetProviderRef(ctx, ord.ID, providerRef); err != nil {
		return Result{}, err
	}

	o.logger.Info("checkout complete",
		zap.String("order_id", ord.ID.String()),
		zap.String("provider_ref", providerRef),
		zap.Int("total", total),
	)
	o.publish(orders.TopicOrderCreated, orders.NewEnvelope(
		orders.EventOrderCreated, o.opts.Service, ord.ID.String(),
		orders.OrderCreatedPayload{
			OrderID:  ord.ID.String(),
			Total:    total,
			Currency: o.opts.Currency,
			Items:    toItemQty(ord.Items),
		},
	))

	return Result{OrderID: ord.ID, Amount: total, Currency: o.opts.Currency, ProviderRef: providerRef}, nil
}

// Cancel handles a customer abort. A settlement that already won the order's
// guarded transition makes this an ErrInvalidState.
func (o *Orchestrator) Cancel(ctx context.Context, orderID uuid.UUID) error {
	claimed, err := o.orders.ClaimCancel(ctx, orderID)
	if err != nil {
		return err
	}
	if !claimed {
		return domain.ErrInvalidState
	}
	items, err := o.orders.Items(ctx, orderID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := o.ledger.Release(ctx, it.VariantID, it.Quantity); err != nil {
			o.logger.Error("release on cancel failed",
				zap.String("order_id", orderID.String()),
				zap.String("variant_id", it.VariantID.String()),
				zap.Error(err),
			)
		}
	}
	o.logger.Info("order cancelled", zap.String("order_id", orderID.String()))
	o.publish(orders.TopicOrderCancelled, orders.NewEnvelope(
		orders.EventOrderCancelled, o.opts.Service, orderID.String(),
		orders.OrderCancelledPayload{OrderID: orderID.String()},
	))
	return nil
}

func (o *Orchestrator) releaseItems(ctx context.Context, items []cart.ItemView) {
	for _, it := range items {
		if err := o.ledger.Release(ctx, it.VariantID, it.Quantity); err != nil {
			o.logger.Error("rollback release failed",
				zap.String("variant_id", it.VariantID.String()),
				zap.Error(err),
			)
		}
	}
}

func (o *Orchestrator) publish(topic string, env orders.Envelope) {
	if o.producer == nil {
		return
	}
	o.producer.Publish(topic, orders.PartitionKey(env.CorrelationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func snapshotItems(items []cart.ItemView) []orders.Item {
	out := make([]orders.Item, 0, len(items))
	for _, it := range items {
		out = append(out, orders.Item{
			VariantID:    it.VariantID,
			SKU:          it.SKU,
			ProductName:  it.ProductName,
			VariantTitle: it.VariantTitle,
			UnitPrice:    it.UnitPrice,
			Quantity:     it.Quantity,
			LineTotal:    it.LineTotal,
		})
	}
	return out
}

func toItemQty(items []orders.Item) []orders.ItemQty {
	out := make([]orders.ItemQty, 0, len(items))
	for _, it := range items {
		out = append(out, orders.ItemQty{VariantID: it.VariantID.String(), Qty: it.Quantity})
	}
	return out
}
