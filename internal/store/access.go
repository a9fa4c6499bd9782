package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/analogia-app/engine/internal/ledger"
)

// CheckUserAccess calls the store-side access procedure for an account.
// The procedure runs under the caller's row-level security context; a
// privilege denial surfaces as an error and the ledger falls back to the
// cookie counter.
func (s *Store) CheckUserAccess(ctx context.Context, accountID uuid.UUID) (ledger.AccessSnapshot, error) {
	var snap ledger.AccessSnapshot
	err := s.pool.QueryRow(ctx,
		`SELECT can_generate, reason, generations_used, generations_limit FROM check_user_access($1)`,
		accountID,
	).Scan(&snap.CanGenerate, &snap.Reason, &snap.Used, &snap.Limit)
	if err != nil {
		return ledger.AccessSnapshot{}, fmt.Errorf("failed to check user access: %w", err)
	}
	return snap, nil
}

// CheckAnonymousAccess calls the store-side access procedure for an
// anonymous token.
func (s *Store) CheckAnonymousAccess(ctx context.Context, token string) (ledger.AccessSnapshot, error) {
	var snap ledger.AccessSnapshot
	err := s.pool.QueryRow(ctx,
		`SELECT can_generate, reason, generations_used, generations_limit FROM check_anonymous_access($1)`,
		token,
	).Scan(&snap.CanGenerate, &snap.Reason, &snap.Used, &snap.Limit)
	if err != nil {
		return ledger.AccessSnapshot{}, fmt.Errorf("failed to check anonymous access: %w", err)
	}
	return snap, nil
}
