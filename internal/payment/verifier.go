package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shopcore/storefront/internal/domain"
	"github.com/shopcore/storefront/internal/inventory"
	kafkax "github.com/shopcore/storefront/internal/kafka"
	"github.com/shopcore/storefront/internal/orders"
	"github.com/shopcore/storefront/internal/redisx"
)

// OrderStore is the slice of order persistence the verifier needs. Settle
// performs the claim, the stock commits and the completion atomically.
type OrderStore interface {
	GetByProviderRef(ctx context.Context, ref string) (orders.Order, error)
	Settle(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkPaymentAuthorized(ctx context.Context, orderID uuid.UUID) error
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (bool, error)
	Get(ctx context.Context, orderID uuid.UUID) (orders.Order, error)
}

type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// Verifier validates provider callbacks and finalizes orders. Settlement is
// idempotent: the guarded status transition in the order store is the single
// point that decides which caller commits stock.
type Verifier struct {
	orders        OrderStore
	ledger        inventory.Ledger
	producer      Publisher
	rdb           *redis.Client // optional fast-path dedup
	keySecret     string
	webhookSecret string
	service       string
	logger        *zap.Logger
}

func NewVerifier(store OrderStore, ledger inventory.Ledger, producer Publisher, rdb *redis.Client, keySecret, webhookSecret, service string, logger *zap.Logger) *Verifier {
	return &Verifier{
		orders:        store,
		ledger:        ledger,
		producer:      producer,
		rdb:           rdb,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		service:       service,
		logger:        logger,
	}
}

// Verify handles the checkout-callback: exact signature match, then settle.
// A duplicate callback for an already settled order is a no-op success.
func (v *Verifier) Verify(ctx context.Context, orderRef, paymentRef, signature string) error {
	if !VerifySignature(orderRef, paymentRef, signature, v.keySecret) {
		v.logger.Warn("payment signature mismatch", zap.String("order_ref", orderRef))
		return domain.ErrInvalidSignature
	}

	if v.rdb != nil {
		key := fmt.Sprintf(redisx.KeyVerifyDedup, orderRef, paymentRef)
		if seen, _ := redisx.Exists(ctx, v.rdb, key); seen {
			return nil
		}
	}

	if err := v.settle(ctx, orderRef, paymentRef); err != nil {
		return err
	}

	if v.rdb != nil {
		key := fmt.Sprintf(redisx.KeyVerifyDedup, orderRef, paymentRef)
		_ = v.rdb.Set(ctx, key, "1", redisx.TTLVerifyDedup).Err()
	}
	return nil
}

func (v *Verifier) settle(ctx context.Context, orderRef, paymentRef string) error {
	o, err := v.orders.GetByProviderRef(ctx, orderRef)
	if err != nil {
		return err
	}

	if o.Status == domain.OrderCompleted {
		// already settled; at-least-once delivery
		return nil
	}
	if !domain.CanTransition(o.Status, domain.OrderPaid) {
		return domain.ErrInvalidState
	}

	// claim, stock commit and completion happen in one transaction; losing
	// the claim means a cancel, an expiry or a concurrent settle got there
	// first
	claimed, err := v.orders.Settle(ctx, o.ID)
	if err != nil {
		return err
	}
	if !claimed {
		cur, err := v.orders.Get(ctx, o.ID)
		if err != nil {
			return err
		}
		if cur.Status == domain.OrderCompleted {
			return nil
		}
		return domain.ErrInvalidState
	}

	v.logger.Info("order settled",
		zap.String("order_id", o.ID.String()),
		zap.String("payment_ref", paymentRef),
	)
	v.publish(orders.TopicOrderSettled, orders.NewEnvelope(
		orders.EventOrderSettled, v.service, o.ID.String(),
		orders.OrderSettledPayload{OrderID: o.ID.String(), PaymentRef: paymentRef},
	))
	return nil
}

// authorize records the provider-side hold; a settled or abandoned order
// makes this a no-op, authorization alone never finalizes anything.
func (v *Verifier) authorize(ctx context.Context, orderRef string) error {
	o, err := v.orders.GetByProviderRef(ctx, orderRef)
	if err != nil {
		return err
	}
	return v.orders.MarkPaymentAuthorized(ctx, o.ID)
}

// failPayment releases the reservation when the provider reports a failed
// payment. Exactly-once release is guaranteed by the claimed transition.
func (v *Verifier) failPayment(ctx context.Context, orderRef, paymentRef string) error {
	o, err := v.orders.GetByProviderRef(ctx, orderRef)
	if err != nil {
		return err
	}
	claimed, err := v.orders.MarkPaymentFailed(ctx, o.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	for _, it := range o.Items {
		if err := v.ledger.Release(ctx, it.VariantID, it.Quantity); err != nil {
			v.logger.Error("stock release failed",
				zap.String("order_id", o.ID.String()),
				zap.String("variant_id", it.VariantID.String()),
				zap.Error(err),
			)
		}
	}
	v.publish(orders.TopicPaymentFailed, orders.NewEnvelope(
		orders.EventPaymentFailed, v.service, o.ID.String(),
		orders.PaymentFailedPayload{OrderID: o.ID.String(), Reason: "provider_reported_failure"},
	))
	return nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook authenticates and dispatches an asynchronous provider event.
// Unknown event types are acknowledged and dropped.
func (v *Verifier) HandleWebhook(ctx context.Context, body []byte, signatureHeader string) error {
	if !VerifyWebhookSignature(body, signatureHeader, v.webhookSecret) {
		return domain.ErrInvalidSignature
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("%w: malformed webhook body", domain.ErrInvalidInput)
	}

	orderRef := evt.Payload.Payment.Entity.OrderID
	paymentRef := evt.Payload.Payment.Entity.ID
	if orderRef == "" || paymentRef == "" {
		return nil
	}

	switch evt.Event {
	case "payment.authorized":
		return v.authorize(ctx, orderRef)
	case "payment.captured":
		return v.settle(ctx, orderRef, paymentRef)
	case "payment.failed":
		return v.failPayment(ctx, orderRef, paymentRef)
	default:
		return nil
	}
}

func (v *Verifier) publish(topic string, env orders.Envelope) {
	if v.producer == nil {
		return
	}
	v.producer.Publish(topic, orders.PartitionKey(env.CorrelationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
