package httpx

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopcore/storefront/internal/domain"
	"github.com/shopcore/storefront/internal/inventory"
	"github.com/shopcore/storefront/internal/orders"
)

const adminTokenHeader = "X-Admin-Token"

type AdminHandler struct {
	Ledger inventory.Ledger
	Orders *orders.Repo
	Token  string
}

type adjustReq struct {
	VariantID uuid.UUID `json:"variant_id"`
	Delta     int       `json:"delta"`
}

type adjustResp struct {
	VariantID uuid.UUID `json:"variant_id"`
	OnHand    int       `json:"on_hand"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireToken)
		r.Post("/inventory/adjust", h.adjust)
		r.Get("/inventory/{variantID}", h.levels)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{orderID}", h.getOrder)
	})
}

func (h *AdminHandler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(adminTokenHeader)
		if h.Token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.Token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.VariantID == uuid.Nil {
		writeDomainError(w, fmt.Errorf("%w: variant_id is required", domain.ErrInvalidInput))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	onHand, reserved, err := h.Ledger.Adjust(ctx, req.VariantID, req.Delta)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustResp{
		VariantID: req.VariantID,
		OnHand:    onHand,
		Reserved:  reserved,
		Available: onHand - reserved,
	})
}

func (h *AdminHandler) levels(w http.ResponseWriter, r *http.Request) {
	variantID, err := pathUUID(r, "variantID")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	onHand, reserved, err := h.Ledger.Levels(ctx, variantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustResp{
		VariantID: variantID,
		OnHand:    onHand,
		Reserved:  reserved,
		Available: onHand - reserved,
	})
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			writeDomainError(w, fmt.Errorf("%w: limit must be 1..500", domain.ErrInvalidInput))
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Orders.List(ctx, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *AdminHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "orderID")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
