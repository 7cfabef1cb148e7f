package redisx

import "time"

const (
	// Cached order status: order_status:{order_id} -> {"status":"..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup for payment callbacks: dedup:verify:{provider_ref}:{payment_ref}
	KeyVerifyDedup = "dedup:verify:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	// terminal statuses never change again, so they may live much longer
	TTLStatusTerminal = 24 * time.Hour
	TTLVerifyDedup    = 48 * time.Hour
)
