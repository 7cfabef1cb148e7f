package main

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/shopcore/storefront/internal/domain"
	"github.com/shopcore/storefront/internal/orders"
	"github.com/shopcore/storefront/internal/redisx"
)

func TestStatusCacheEntry(t *testing.T) {
	t.Parallel()

	decode := func(t *testing.T, body []byte) map[string]any {
		t.Helper()
		var m map[string]any
		require.NoError(t, json.Unmarshal(body, &m))
		return m
	}

	t.Run("created event caches pending with the short TTL", func(t *testing.T) {
		orderID := uuid.NewString()
		env := orders.NewEnvelope(orders.EventOrderCreated, "test", orderID,
			orders.OrderCreatedPayload{OrderID: orderID, Total: 4500, Currency: "INR"})

		key, body, ttl, ok := statusCacheEntry(env)
		require.True(t, ok)
		require.Contains(t, key, orderID)
		require.Equal(t, redisx.TTLStatusCache, ttl)

		entry := decode(t, body)
		require.Equal(t, string(domain.OrderPendingPayment), entry["status"])
		require.NotContains(t, entry, "payment_ref")
	})

	t.Run("settled event carries the payment ref and the terminal TTL", func(t *testing.T) {
		orderID := uuid.NewString()
		env := orders.NewEnvelope(orders.EventOrderSettled, "test", orderID,
			orders.OrderSettledPayload{OrderID: orderID, PaymentRef: "pay_789"})

		key, body, ttl, ok := statusCacheEntry(env)
		require.True(t, ok)
		require.Contains(t, key, orderID)
		require.Equal(t, redisx.TTLStatusTerminal, ttl)

		entry := decode(t, body)
		require.Equal(t, string(domain.OrderCompleted), entry["status"])
		require.Equal(t, "pay_789", entry["payment_ref"])
	})

	t.Run("expired and cancelled are terminal", func(t *testing.T) {
		for _, ev := range []string{orders.EventOrderExpired, orders.EventOrderCancelled} {
			env := orders.NewEnvelope(ev, "test", uuid.NewString(), orders.OrderExpiredPayload{})
			_, _, ttl, ok := statusCacheEntry(env)
			require.True(t, ok, ev)
			require.Equal(t, redisx.TTLStatusTerminal, ttl, ev)
		}
	})

	t.Run("unmapped event is skipped", func(t *testing.T) {
		env := orders.NewEnvelope("SomethingElse", "test", uuid.NewString(), struct{}{})
		_, _, _, ok := statusCacheEntry(env)
		require.False(t, ok)
	})
}
