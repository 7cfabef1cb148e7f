package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the provider's callback signature: HMAC-SHA256 over
// "orderRef|paymentRef" with the shared key secret, hex encoded.
func Sign(orderRef, paymentRef, keySecret string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	_, _ = mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a checkout-callback signature with a constant-time
// exact match.
func VerifySignature(orderRef, paymentRef, signature, keySecret string) bool {
	expected := Sign(orderRef, paymentRef, keySecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the provider webhook signature computed over
// the raw request body.
func VerifyWebhookSignature(body []byte, signatureHeader, webhookSecret string) bool {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	_, _ = mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}
