package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	const secret = "test_key_secret"
	sig := Sign("order_abc", "pay_xyz", secret)

	require.True(t, VerifySignature("order_abc", "pay_xyz", sig, secret))

	t.Run("single hex digit flip fails", func(t *testing.T) {
		mutated := []byte(sig)
		if mutated[0] == 'a' {
			mutated[0] = 'b'
		} else {
			mutated[0] = 'a'
		}
		require.False(t, VerifySignature("order_abc", "pay_xyz", string(mutated), secret))
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		require.False(t, VerifySignature("order_abc", "pay_xyz", sig, "other_secret"))
	})

	t.Run("swapped refs fail", func(t *testing.T) {
		require.False(t, VerifySignature("pay_xyz", "order_abc", sig, secret))
	})

	t.Run("empty signature fails", func(t *testing.T) {
		require.False(t, VerifySignature("order_abc", "pay_xyz", "", secret))
	})
}

func TestVerifyWebhookSignature(t *testing.T) {
	t.Parallel()

	const secret = "whsec_test"
	body := []byte(`{"event":"payment.captured"}`)

	mac := hmacHex(body, secret)
	require.True(t, VerifyWebhookSignature(body, mac, secret))
	require.False(t, VerifyWebhookSignature([]byte(`{"event":"payment.failed"}`), mac, secret))
	require.False(t, VerifyWebhookSignature(body, mac, "other"))
}

// hmacHex mirrors the provider's raw-body signing for test input.
func hmacHex(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
