package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/analogia-app/engine/internal/billing"
	"github.com/analogia-app/engine/pkg/logger"
)

// maxWebhookBody bounds inbound webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// PaymentWebhook is POST /webhooks/payment. Signature verification runs over
// the exact raw bytes; parsing happens only after the signature holds, so a
// forged payload never reaches the reconciler.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "could not read request body")
		return
	}

	if err := billing.VerifySignature(h.webhookSecret, raw, r.Header.Get(billing.HeaderSignature)); err != nil {
		if errors.Is(err, billing.ErrSecretNotConfigured) {
			h.log.ErrorContext(ctx, "webhook secret is not configured")
			respondError(w, http.StatusInternalServerError, "not_configured", "webhook processing is not configured")
			return
		}
		h.log.WarnContext(ctx, "rejected webhook with invalid signature", logger.Error(err))
		respondError(w, http.StatusUnauthorized, "invalid_signature", "signature verification failed")
		return
	}

	var evt billing.Event
	if err := json.Unmarshal(raw, &evt); err != nil || evt.Event == "" {
		h.log.WarnContext(ctx, "rejected malformed webhook payload", logger.Error(err))
		respondError(w, http.StatusBadRequest, "invalid_payload", "payload is not a valid event")
		return
	}

	if err := h.reconciler.Process(ctx, &evt, raw); err != nil {
		h.log.ErrorContext(ctx, "webhook reconciliation failed",
			logger.EventType(evt.Event), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "processing_failed", "event could not be processed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
