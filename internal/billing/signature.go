package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HeaderSignature is the HTTP header carrying the provider's signature:
// an HMAC-SHA256 hex digest of the raw request body.
const HeaderSignature = "X-Provider-Signature"

// SignPayload computes the hex HMAC-SHA256 signature for a payload.
// Used by tests and by outbound replay tooling.
func SignPayload(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature validates a webhook body against the provider signature.
func VerifySignature(secret string, payload []byte, signature string) error {
	if secret == "" {
		return ErrSecretNotConfigured
	}
	if signature == "" {
		return fmt.Errorf("%w: signature header is missing", ErrInvalidSignature)
	}

	expected := SignPayload(secret, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}
	return nil
}
