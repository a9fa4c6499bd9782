package store

import (
	"context"
	"fmt"

	"github.com/analogia-app/engine/internal/ledger"
)

// InsertGeneration appends one generation record. The table is append-only;
// nothing in the engine updates or deletes these rows.
func (s *Store) InsertGeneration(ctx context.Context, rec ledger.GenerationRecord) error {
	var token *string
	if rec.AnonymousToken != "" {
		token = &rec.AnonymousToken
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO generation_records (account_id, anonymous_token, concept, audience, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.AccountID, token, rec.Concept, rec.Audience, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert generation record: %w", err)
	}
	return nil
}
