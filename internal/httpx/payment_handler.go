package httpx

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopcore/storefront/internal/domain"
	"github.com/shopcore/storefront/internal/payment"
)

const webhookSignatureHeader = "X-Razorpay-Signature"

// maxWebhookBody bounds how much of a webhook we will read before signing.
const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	Verifier *payment.Verifier
}

type verifyReq struct {
	OrderRef   string `json:"razorpay_order_id"`
	PaymentRef string `json:"razorpay_payment_id"`
	Signature  string `json:"razorpay_signature"`
}

func (h *PaymentHandler) Register(r chi.Router) {
	r.Post("/payments/verify", h.verify)
	r.Post("/webhooks/payment", h.webhook)
}

func (h *PaymentHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyReq
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.OrderRef == "" || req.PaymentRef == "" || req.Signature == "" {
		// missing callback fields are treated the same as a bad signature,
		// the response must not reveal which part was wrong
		writeDomainError(w, domain.ErrInvalidSignature)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Verifier.Verify(ctx, req.OrderRef, req.PaymentRef, req.Signature); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (h *PaymentHandler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Verifier.HandleWebhook(ctx, body, r.Header.Get(webhookSignatureHeader)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
