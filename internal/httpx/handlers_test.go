package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopcore/storefront/internal/domain"
	"github.com/shopcore/storefront/internal/inventory"
	"github.com/shopcore/storefront/internal/orders"
	"github.com/shopcore/storefront/internal/payment"
)

func TestWriteDomainError_Mapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"invalid quantity wrapped", fmt.Errorf("line 2: %w", domain.ErrInvalidQuantity), http.StatusBadRequest},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"variant not found", domain.ErrVariantNotFound, http.StatusNotFound},
		{"unknown transaction", domain.ErrUnknownTransaction, http.StatusNotFound},
		{"insufficient stock", &domain.InsufficientStockError{VariantID: uuid.New(), Requested: 3, Available: 1}, http.StatusConflict},
		{"cart not open", domain.ErrCartNotOpen, http.StatusConflict},
		{"invalid state", domain.ErrInvalidState, http.StatusConflict},
		{"negative stock", domain.ErrNegativeStock, http.StatusConflict},
		{"invalid signature", domain.ErrInvalidSignature, http.StatusUnauthorized},
		{"provider unavailable", fmt.Errorf("create provider transaction: %w", domain.ErrProviderUnavailable), http.StatusBadGateway},
		{"anything else", fmt.Errorf("pg down"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tc.err)
			require.Equal(t, tc.code, rec.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.NotEmpty(t, body.Error.Message)
		})
	}
}

type verifierOrders struct {
	order  orders.Order
	ledger *inventory.MemoryLedger
}

func (f *verifierOrders) GetByProviderRef(ctx context.Context, ref string) (orders.Order, error) {
	if ref != f.order.ProviderRef {
		return orders.Order{}, domain.ErrUnknownTransaction
	}
	return f.order, nil
}

func (f *verifierOrders) Get(ctx context.Context, orderID uuid.UUID) (orders.Order, error) {
	return f.order, nil
}

func (f *verifierOrders) Settle(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if f.order.Status != domain.OrderPendingPayment {
		return false, nil
	}
	for _, it := range f.order.Items {
		if err := f.ledger.Commit(ctx, it.VariantID, it.Quantity); err != nil {
			return false, err
		}
	}
	f.order.Status = domain.OrderCompleted
	f.order.PaymentStatus = domain.PaymentCaptured
	return true, nil
}

func (f *verifierOrders) MarkPaymentAuthorized(ctx context.Context, orderID uuid.UUID) error {
	if f.order.Status == domain.OrderPendingPayment && f.order.PaymentStatus == domain.PaymentCreated {
		f.order.PaymentStatus = domain.PaymentAuthorized
	}
	return nil
}

func (f *verifierOrders) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if f.order.Status != domain.OrderPendingPayment {
		return false, nil
	}
	f.order.Status = domain.OrderFailed
	return true, nil
}

func newVerifyServer(t *testing.T) (*httptest.Server, *verifierOrders) {
	t.Helper()

	variantID := uuid.New()
	ledger := inventory.NewMemoryLedger()
	ledger.SetOnHand(variantID, 10)
	require.NoError(t, ledger.Reserve(context.Background(), variantID, 1))

	store := &verifierOrders{
		order: orders.Order{
			ID:            uuid.New(),
			Status:        domain.OrderPendingPayment,
			PaymentStatus: domain.PaymentCreated,
			ProviderRef:   "order_ref_1",
			ExpiresAt:     time.Now().Add(time.Hour),
			Items:         []orders.Item{{VariantID: variantID, Quantity: 1, UnitPrice: 1000, LineTotal: 1000}},
		},
		ledger: ledger,
	}

	v := payment.NewVerifier(store, ledger, nil, nil, "key_secret", "wh_secret", "test", zap.NewNop())

	r := NewRouter(RouterOptions{DevAllowAllCORS: true})
	r.Route("/v1", func(r chi.Router) {
		(&PaymentHandler{Verifier: v}).Register(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestPaymentHandler_Verify(t *testing.T) {
	t.Parallel()

	post := func(t *testing.T, url string, body map[string]string) *http.Response {
		t.Helper()
		b, _ := json.Marshal(body)
		resp, err := http.Post(url, "application/json", bytes.NewReader(b))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("valid callback settles", func(t *testing.T) {
		srv, store := newVerifyServer(t)
		sig := payment.Sign("order_ref_1", "pay_1", "key_secret")
		resp := post(t, srv.URL+"/v1/payments/verify", map[string]string{
			"razorpay_order_id":   "order_ref_1",
			"razorpay_payment_id": "pay_1",
			"razorpay_signature":  sig,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, domain.OrderCompleted, store.order.Status)
	})

	t.Run("bad signature gets a generic 401", func(t *testing.T) {
		srv, store := newVerifyServer(t)
		resp := post(t, srv.URL+"/v1/payments/verify", map[string]string{
			"razorpay_order_id":   "order_ref_1",
			"razorpay_payment_id": "pay_1",
			"razorpay_signature":  "deadbeef",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, "payment verification failed", body.Error.Message)
		require.Equal(t, domain.OrderPendingPayment, store.order.Status)
	})

	t.Run("missing fields get the same generic 401", func(t *testing.T) {
		srv, _ := newVerifyServer(t)
		resp := post(t, srv.URL+"/v1/payments/verify", map[string]string{
			"razorpay_order_id": "order_ref_1",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, "payment verification failed", body.Error.Message)
	})
}

func TestAdminHandler_TokenGate(t *testing.T) {
	t.Parallel()

	variantID := uuid.New()
	ledger := inventory.NewMemoryLedger()
	ledger.SetOnHand(variantID, 4)

	r := NewRouter(RouterOptions{DevAllowAllCORS: true})
	r.Route("/v1", func(r chi.Router) {
		(&AdminHandler{Ledger: ledger, Token: "s3cret"}).Register(r)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	adjust := func(t *testing.T, token string, delta int) *http.Response {
		t.Helper()
		b, _ := json.Marshal(map[string]any{"variant_id": variantID, "delta": delta})
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/admin/inventory/adjust", bytes.NewReader(b))
		require.NoError(t, err)
		if token != "" {
			req.Header.Set(adminTokenHeader, token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("no token", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, adjust(t, "", 1).StatusCode)
	})

	t.Run("wrong token", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, adjust(t, "nope", 1).StatusCode)
	})

	t.Run("valid token adjusts", func(t *testing.T) {
		resp := adjust(t, "s3cret", 3)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body adjustResp
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, 7, body.OnHand)
		require.Equal(t, 7, body.Available)
	})

	t.Run("delta below reserved is a conflict", func(t *testing.T) {
		require.NoError(t, ledger.Reserve(context.Background(), variantID, 5))
		require.Equal(t, http.StatusConflict, adjust(t, "s3cret", -4).StatusCode)
	})
}
