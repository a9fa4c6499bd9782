package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ConsumeCredit decrements one credit through the atomic store procedure.
// Returns false when the balance is already zero. All balance mutations go
// through this procedure; the application never does read-modify-write.
func (s *Store) ConsumeCredit(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, `SELECT consume_credit($1)`, accountID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to consume credit: %w", err)
	}
	return ok, nil
}

// AddCredits increments the balance through the atomic store procedure.
func (s *Store) AddCredits(ctx context.Context, accountID uuid.UUID, amount int) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, `SELECT add_credits($1, $2)`, accountID, amount).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to add credits: %w", err)
	}
	return ok, nil
}
