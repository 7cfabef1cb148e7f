package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/storefront/internal/domain"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderSettled   = "OrderSettled"
	EventOrderExpired   = "OrderExpired"
	EventOrderCancelled = "OrderCancelled"
	EventPaymentFailed  = "PaymentFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps an event payload for publishing. Panics on a payload
// that cannot marshal, which would be a programming error.
func NewEnvelope(eventType, producer, orderID string, payload any) Envelope {
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: orderID,
		Payload:       b,
	}
}

type ItemQty struct {
	VariantID string `json:"variant_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID  string    `json:"order_id"`
	Total    int       `json:"total"`
	Currency string    `json:"currency"`
	Items    []ItemQty `json:"items"`
}

type OrderSettledPayload struct {
	OrderID    string `json:"order_id"`
	PaymentRef string `json:"payment_ref"`
}

type OrderExpiredPayload struct {
	OrderID string `json:"order_id"`
}

type OrderCancelledPayload struct {
	OrderID string `json:"order_id"`
}

type PaymentFailedPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// StatusForEvent maps a lifecycle event to the order status it implies, for
// read-model caches fed from the event stream.
func StatusForEvent(eventType string) (domain.OrderStatus, bool) {
	switch eventType {
	case EventOrderCreated:
		return domain.OrderPendingPayment, true
	case EventOrderSettled:
		return domain.OrderCompleted, true
	case EventOrderExpired:
		return domain.OrderExpired, true
	case EventOrderCancelled:
		return domain.OrderCancelled, true
	case EventPaymentFailed:
		return domain.OrderFailed, true
	}
	return "", false
}
