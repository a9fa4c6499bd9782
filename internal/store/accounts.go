package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/analogia-app/engine/internal/billing"
	"github.com/analogia-app/engine/internal/entitlement"
	"github.com/analogia-app/engine/pkg/pg"
)

const accountColumns = `id, email, name, plan_type, subscription_status, subscription_id,
	trial_ends_at, credits_remaining, credits_expires_at, plan_started_at, next_billing_at, created_at`

func (s *Store) scanAccount(row interface{ Scan(dest ...any) error }) (*entitlement.Account, error) {
	var acct entitlement.Account
	err := row.Scan(
		&acct.ID, &acct.Email, &acct.Name, &acct.PlanType, &acct.SubscriptionStatus,
		&acct.SubscriptionID, &acct.TrialEndsAt, &acct.CreditsRemaining,
		&acct.CreditsExpiresAt, &acct.PlanStartedAt, &acct.NextBillingAt, &acct.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// AccountByID fetches the entitlement projection of an account.
func (s *Store) AccountByID(ctx context.Context, id uuid.UUID) (*entitlement.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	acct, err := s.scanAccount(row)
	if pg.IsNotFoundError(err) {
		return nil, billing.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account by id: %w", err)
	}
	return acct, nil
}

// AccountByEmail fetches an account by its customer email. Email matching is
// case-insensitive; the provider does not normalize what the buyer typed.
func (s *Store) AccountByEmail(ctx context.Context, email string) (*entitlement.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)

	acct, err := s.scanAccount(row)
	if pg.IsNotFoundError(err) {
		return nil, billing.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account by email: %w", err)
	}
	return acct, nil
}

// CreateAccount inserts a fresh free-plan account with the standard trial
// window. Used at signup and when a purchase arrives before signup. A signup
// and a webhook racing to create the same email resolve to the row that won.
func (s *Store) CreateAccount(ctx context.Context, email, name string) (*entitlement.Account, error) {
	trialEnds := time.Now().AddDate(0, 0, entitlement.DefaultFreeTrialDays)

	row := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, email, name, plan_type, subscription_status, trial_ends_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+accountColumns,
		uuid.New(), email, name, entitlement.PlanFree, entitlement.StatusPending, trialEnds)

	acct, err := s.scanAccount(row)
	if pg.IsDuplicateKeyError(err) {
		return s.AccountByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acct, nil
}

// ApplyPlan writes the absolute plan fields onto an account row. Nil pointer
// fields become NULL so replaying the same reconciliation converges, except
// credits_remaining which is kept when nil (grants are additive, via RPC).
func (s *Store) ApplyPlan(ctx context.Context, accountID uuid.UUID, state billing.PlanState) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET
			plan_type = $2,
			subscription_status = $3,
			subscription_id = $4,
			credits_remaining = COALESCE($5, credits_remaining),
			credits_expires_at = $6,
			plan_started_at = $7,
			next_billing_at = $8
		WHERE id = $1`,
		accountID, state.PlanType, state.SubscriptionStatus, state.SubscriptionID,
		state.CreditsRemaining, state.CreditsExpiresAt, state.PlanStartedAt, state.NextBillingAt)
	if err != nil {
		return fmt.Errorf("failed to apply plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrAccountNotFound
	}
	return nil
}

// UpdateSubscriptionStatus flips only the subscription status, leaving the
// plan tier and balances untouched.
func (s *Store) UpdateSubscriptionStatus(ctx context.Context, accountID uuid.UUID, status entitlement.SubscriptionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET subscription_status = $2 WHERE id = $1`, accountID, status)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrAccountNotFound
	}
	return nil
}
