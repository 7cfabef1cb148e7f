package httpx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopcore/storefront/internal/cart"
	"github.com/shopcore/storefront/internal/domain"
)

type CartHandler struct {
	Carts *cart.Service
}

type upsertItemReq struct {
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Post("/cart", h.create)
	r.Get("/cart/{cartID}", h.get)
	r.Post("/cart/{cartID}/items", h.upsertItem)
	r.Delete("/cart/{cartID}/items/{variantID}", h.removeItem)
}

func (h *CartHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Carts.Create(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	cartID, err := pathUUID(r, "cartID")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Carts.Get(ctx, cartID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) upsertItem(w http.ResponseWriter, r *http.Request) {
	cartID, err := pathUUID(r, "cartID")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req upsertItemReq
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

	v, err := h.Carts.UpsertItem(ctx, cartID, req.VariantID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	cartID, err := pathUUID(r, "cartID")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	variantID, err := pathUUID(r, "variantID")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	v, err := h.Carts.RemoveItem(ctx, cartID, variantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a uuid", domain.ErrInvalidInput, name)
	}
	return id, nil
}
