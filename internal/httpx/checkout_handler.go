package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/shopcore/storefront/internal/checkout"
	"github.com/shopcore/storefront/internal/orders"
	"github.com/shopcore/storefront/internal/redisx"
)

type CheckoutHandler struct {
	Orchestrator *checkout.Orchestrator
	Orders       *orders.Repo
	Redis        *redis.Client
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Post("/checkout", h.checkout)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/{orderID}/cancel", h.cancel)
}

func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var in checkout.Input
	if err := decodeJSON(r, &in); err != nil {
		writeDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	res, err := h.Orchestrator.Checkout(ctx, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// getOrder serves the storefront status poll: Redis cache first, DB on miss.
func (h *CheckoutHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "orderID")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body := map[string]any{
		"order_id": o.ID,
		"status":   o.Status,
		"total":    o.Total,
		"currency": o.Currency,
	}
	if h.Redis != nil {
		if b, err := json.Marshal(body); err == nil {
			key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
			_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *CheckoutHandler) cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "orderID")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Orchestrator.Cancel(ctx, orderID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
