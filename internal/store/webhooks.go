package store

import (
	"context"
	"fmt"

	"github.com/analogia-app/engine/internal/billing"
)

// AppendWebhookEvent writes one verbatim provider event to the append-only
// audit log. Called before any reconciliation mutation is attempted.
func (s *Store) AppendWebhookEvent(ctx context.Context, entry billing.AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_events (event_type, correlation_id, customer_email, payload, received_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.EventType, entry.CorrelationID, entry.CustomerEmail, entry.Payload, entry.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to append webhook event: %w", err)
	}
	return nil
}
