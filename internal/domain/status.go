package domain

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderPaid           OrderStatus = "paid"
	OrderCompleted      OrderStatus = "completed"
	OrderFailed         OrderStatus = "failed"
	OrderExpired        OrderStatus = "expired"
	OrderCancelled      OrderStatus = "cancelled"
)

var validNextOrder = map[OrderStatus]map[OrderStatus]bool{
	OrderPendingPayment: {OrderPaid: true, OrderFailed: true, OrderExpired: true, OrderCancelled: true},
	OrderPaid:           {OrderCompleted: true},
	OrderCompleted:      {},
	OrderFailed:         {},
	OrderExpired:        {},
	OrderCancelled:      {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return validNextOrder[from][to]
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return len(validNextOrder[s]) == 0
}

// PaymentStatus tracks the provider-side payment state for an order.
type PaymentStatus string

const (
	PaymentCreated    PaymentStatus = "created"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentFailed     PaymentStatus = "failed"
)

// CartStatus is the cart lifecycle state. A cart is mutable only while open
// and becomes converted exactly once, atomically with order creation.
type CartStatus string

const (
	CartOpen      CartStatus = "open"
	CartConverted CartStatus = "converted"
)
