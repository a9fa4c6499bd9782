package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analogia-app/engine/internal/billing"
)

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	secret := "whsec_test_secret"
	payload := []byte(`{"event":"order.paid","data":{"order_id":"ord_1"}}`)

	t.Run("valid signature", func(t *testing.T) {
		t.Parallel()
		sig := billing.SignPayload(secret, payload)
		require.NoError(t, billing.VerifySignature(secret, payload, sig))
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Parallel()
		sig := billing.SignPayload(secret, payload)
		err := billing.VerifySignature("", payload, sig)
		assert.ErrorIs(t, err, billing.ErrSecretNotConfigured)
	})

	t.Run("missing signature", func(t *testing.T) {
		t.Parallel()
		err := billing.VerifySignature(secret, payload, "")
		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()
		sig := billing.SignPayload(secret, payload)
		err := billing.VerifySignature(secret, []byte(`{"event":"order.paid","data":{"order_id":"ord_2"}}`), sig)
		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("signature from wrong secret", func(t *testing.T) {
		t.Parallel()
		sig := billing.SignPayload("some-other-secret", payload)
		err := billing.VerifySignature(secret, payload, sig)
		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})
}
