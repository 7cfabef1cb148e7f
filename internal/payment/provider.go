package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shopcore/storefront/internal/domain"
)

// Provider creates charge intents with the external payment gateway. The
// core depends only on this contract, not on any provider SDK shape.
type Provider interface {
	CreateTransaction(ctx context.Context, amount int, currency, orderRef string) (providerRef string, err error)
}

// Client talks to a Razorpay-style orders API over HTTP. Calls run through a
// circuit breaker so a flapping gateway fails fast instead of tying up
// checkout handlers.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
	cb        *gobreaker.CircuitBreaker
}

func NewClient(baseURL, keyID, keySecret string) *Client {
	return &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: 15 * time.Second},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "payment-provider",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

type createTransactionRequest struct {
	Amount         int    `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type createTransactionResponse struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func (c *Client) CreateTransaction(ctx context.Context, amount int, currency, orderRef string) (string, error) {
	ref, err := c.cb.Execute(func() (any, error) {
		return c.createTransaction(ctx, amount, currency, orderRef)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", fmt.Errorf("%w: circuit open", domain.ErrProviderUnavailable)
		}
		return "", err
	}
	return ref.(string), nil
}

func (c *Client) createTransaction(ctx context.Context, amount int, currency, orderRef string) (string, error) {
	body, _ := json.Marshal(createTransactionRequest{
		Amount:         amount,
		Currency:       currency,
		Receipt:        orderRef,
		PaymentCapture: 1,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status=%d", domain.ErrProviderUnavailable, res.StatusCode)
	}
	var out createTransactionResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: empty transaction id", domain.ErrProviderUnavailable)
	}
	return out.ID, nil
}
