package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/analogia-app/engine/internal/entitlement"
	"github.com/analogia-app/engine/pkg/logger"
)

// PlanState is the absolute set of plan fields the reconciler writes onto an
// account. Nil pointer fields are stored as NULL, not skipped, so replaying
// the same event always converges on the same row state. The one exception
// is CreditsRemaining: nil leaves the balance alone, because additive grants
// move through the atomic credit procedure instead of an absolute write.
type PlanState struct {
	PlanType           entitlement.PlanType
	SubscriptionStatus entitlement.SubscriptionStatus
	SubscriptionID     *string
	CreditsRemaining   *int
	CreditsExpiresAt   *time.Time
	PlanStartedAt      *time.Time
	NextBillingAt      *time.Time
}

// AccountStore is the account persistence surface the reconciler needs.
// AccountByEmail returns ErrAccountNotFound when no account matches.
type AccountStore interface {
	AccountByEmail(ctx context.Context, email string) (*entitlement.Account, error)
	CreateAccount(ctx context.Context, email, name string) (*entitlement.Account, error)
	ApplyPlan(ctx context.Context, accountID uuid.UUID, state PlanState) error
	UpdateSubscriptionStatus(ctx context.Context, accountID uuid.UUID, status entitlement.SubscriptionStatus) error
}

// CreditGranter performs the additive credit grant through the store's
// atomic procedure. Satisfied by *ledger.Ledger.
type CreditGranter interface {
	GrantCredits(ctx context.Context, accountID uuid.UUID, amount int) (bool, error)
}

// AuditEntry is one verbatim webhook event appended to the audit log before
// any state mutation, so replays stay diagnosable even when the mutation
// step fails.
type AuditEntry struct {
	EventType     string
	CorrelationID string
	CustomerEmail string
	Payload       []byte
	ReceivedAt    time.Time
}

// AuditLog appends webhook events verbatim to an append-only record.
type AuditLog interface {
	AppendWebhookEvent(ctx context.Context, entry AuditEntry) error
}

// Reconciler applies provider payment events to account plan and credit
// state. Absolute field writes are idempotent through ApplyPlan; additive
// credit grants are deduplicated through the Guard.
type Reconciler struct {
	accounts AccountStore
	credits  CreditGranter
	audit    AuditLog
	guard    Guard
	log      *slog.Logger
	now      func() time.Time
}

func NewReconciler(accounts AccountStore, credits CreditGranter, audit AuditLog, guard Guard, log *slog.Logger) *Reconciler {
	if accounts == nil {
		panic("billing: AccountStore is required")
	}
	if credits == nil {
		panic("billing: CreditGranter is required")
	}
	if audit == nil {
		panic("billing: AuditLog is required")
	}
	if guard == nil {
		panic("billing: Guard is required")
	}
	return &Reconciler{
		accounts: accounts,
		credits:  credits,
		audit:    audit,
		guard:    guard,
		log:      log,
		now:      time.Now,
	}
}

// Process applies one verified, parsed webhook event. The raw payload is the
// exact bytes the signature was computed over; it is audited before any
// mutation. Duplicate events and unrecognized event types return nil so the
// provider sees them as accepted. Errors mean the provider should retry.
func (r *Reconciler) Process(ctx context.Context, evt *Event, raw []byte) error {
	entry := AuditEntry{
		EventType:     evt.Event,
		CorrelationID: evt.CorrelationID(),
		CustomerEmail: evt.Data.Customer.Email,
		Payload:       raw,
		ReceivedAt:    r.now(),
	}
	if err := r.audit.AppendWebhookEvent(ctx, entry); err != nil {
		// Audit is best effort. Losing one audit row must not bounce a
		// payment event back to the provider.
		r.log.ErrorContext(ctx, "failed to audit webhook event",
			logger.EventType(evt.Event), logger.Error(err))
	}

	key := evt.Event + ":" + evt.CorrelationID()
	first, err := r.guard.Acquire(ctx, key)
	if err != nil {
		// Without the guard a replay could double-grant. Failing here makes
		// the provider retry once the guard backend is reachable again.
		return fmt.Errorf("failed to acquire idempotency guard: %w", err)
	}
	if !first {
		r.log.InfoContext(ctx, "duplicate webhook event ignored",
			logger.EventType(evt.Event), slog.String("correlation_id", key))
		return nil
	}

	if err := r.apply(ctx, evt); err != nil {
		// Surrender the key so the provider's retry of this failed delivery
		// is not dropped as a duplicate. A failed release leaves the key
		// held; that loses the retry, so it is worth a loud log line.
		if relErr := r.guard.Release(ctx, key); relErr != nil {
			r.log.ErrorContext(ctx, "failed to release idempotency guard after apply failure",
				logger.EventType(evt.Event), slog.String("correlation_id", key), logger.Error(relErr))
		}
		return err
	}
	return nil
}

func (r *Reconciler) apply(ctx context.Context, evt *Event) error {
	switch evt.Event {
	case EventOrderPaid, EventSubscriptionCreated:
		return r.applyPurchase(ctx, evt)
	case EventSubscriptionRenewed:
		return r.applyRenewal(ctx, evt)
	case EventSubscriptionCancelled:
		return r.applyCancellation(ctx, evt)
	case EventOrderRefunded:
		return r.applyRefund(ctx, evt)
	default:
		r.log.InfoContext(ctx, "unrecognized webhook event type, dropping",
			logger.EventType(evt.Event))
		return nil
	}
}

// applyPurchase handles order.paid and subscription.created: resolve or
// create the account by customer email, move it to the purchased tier, and
// grant the tier's allotment.
func (r *Reconciler) applyPurchase(ctx context.Context, evt *Event) error {
	change, err := ResolvePlanCode(evt.PlanCode())
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownPlanCode, evt.PlanCode())
	}

	acct, err := r.resolveOrCreate(ctx, evt)
	if err != nil {
		return err
	}

	if err := r.accounts.ApplyPlan(ctx, acct.ID, r.planState(evt, change)); err != nil {
		return fmt.Errorf("failed to apply plan %q: %w", change.Tier, err)
	}

	if change.Additive {
		if _, err := r.credits.GrantCredits(ctx, acct.ID, change.Credits); err != nil {
			return fmt.Errorf("failed to grant credits: %w", err)
		}
	}

	r.log.InfoContext(ctx, "applied purchase",
		logger.AccountID(acct.ID.String()),
		logger.EventType(evt.Event),
		slog.String("tier", string(change.Tier)))
	return nil
}

// applyRenewal re-applies the tier grant for a subscription renewal. The
// event's subscription id must match the one stored on the account;
// anything else is logged as anomalous and dropped.
func (r *Reconciler) applyRenewal(ctx context.Context, evt *Event) error {
	acct, err := r.lookup(ctx, evt)
	if err != nil || acct == nil {
		return err
	}

	subID := evt.CorrelationID()
	if acct.SubscriptionID == nil || *acct.SubscriptionID != subID {
		r.log.WarnContext(ctx, "renewal for unknown subscription, dropping",
			logger.AccountID(acct.ID.String()),
			slog.String("subscription_id", subID))
		return nil
	}

	change, err := ResolvePlanCode(evt.PlanCode())
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownPlanCode, evt.PlanCode())
	}
	if err := r.accounts.ApplyPlan(ctx, acct.ID, r.planState(evt, change)); err != nil {
		return fmt.Errorf("failed to apply renewal: %w", err)
	}

	r.log.InfoContext(ctx, "applied renewal", logger.AccountID(acct.ID.String()))
	return nil
}

// applyCancellation flips subscription_status to cancelled and nothing else.
// The tier stays until natural expiry; cancellation is not a downgrade.
func (r *Reconciler) applyCancellation(ctx context.Context, evt *Event) error {
	acct, err := r.lookup(ctx, evt)
	if err != nil || acct == nil {
		return err
	}

	if err := r.accounts.UpdateSubscriptionStatus(ctx, acct.ID, entitlement.StatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	r.log.InfoContext(ctx, "subscription cancelled", logger.AccountID(acct.ID.String()))
	return nil
}

// applyRefund force-downgrades to the free tier: subscription id, billing
// dates, and credit balance are all cleared.
func (r *Reconciler) applyRefund(ctx context.Context, evt *Event) error {
	acct, err := r.lookup(ctx, evt)
	if err != nil || acct == nil {
		return err
	}

	zero := 0
	state := PlanState{
		PlanType:           entitlement.PlanFree,
		SubscriptionStatus: entitlement.StatusCancelled,
		CreditsRemaining:   &zero,
	}
	if err := r.accounts.ApplyPlan(ctx, acct.ID, state); err != nil {
		return fmt.Errorf("failed to apply refund downgrade: %w", err)
	}

	r.log.InfoContext(ctx, "refund processed, account downgraded",
		logger.AccountID(acct.ID.String()))
	return nil
}

// planState builds the absolute plan fields for a purchase or renewal.
func (r *Reconciler) planState(evt *Event, change PlanChange) PlanState {
	now := r.now()
	state := PlanState{
		PlanType:           change.Tier,
		SubscriptionStatus: entitlement.StatusActive,
		PlanStartedAt:      &now,
	}

	if sub := evt.Data.Subscription; sub != nil && sub.ID != "" {
		id := sub.ID
		state.SubscriptionID = &id
		if next := parseBillingDate(sub.NextBillingDate); next != nil {
			state.NextBillingAt = next
		}
	}

	if change.Additive {
		// The balance itself moves through the atomic grant procedure; only
		// the expiry window is an absolute field here.
		expiry := now.AddDate(0, change.CreditValidityMonths, 0)
		state.CreditsExpiresAt = &expiry
	} else {
		credits := change.Credits
		state.CreditsRemaining = &credits
	}
	return state
}

// resolveOrCreate finds the account for the event's customer email, creating
// it when the purchase precedes signup.
func (r *Reconciler) resolveOrCreate(ctx context.Context, evt *Event) (*entitlement.Account, error) {
	email := evt.Data.Customer.Email
	if email == "" {
		return nil, ErrMissingCustomer
	}

	acct, err := r.accounts.AccountByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		acct, err = r.accounts.CreateAccount(ctx, email, evt.Data.Customer.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create account for webhook customer: %w", err)
		}
		r.log.InfoContext(ctx, "created account from webhook",
			logger.AccountID(acct.ID.String()))
		return acct, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account by email: %w", err)
	}
	return acct, nil
}

// lookup finds the event's account without creating one. A missing account
// for a lifecycle event is anomalous; it is logged and the event dropped.
func (r *Reconciler) lookup(ctx context.Context, evt *Event) (*entitlement.Account, error) {
	email := evt.Data.Customer.Email
	if email == "" {
		return nil, ErrMissingCustomer
	}

	acct, err := r.accounts.AccountByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		r.log.WarnContext(ctx, "webhook event for unknown account, dropping",
			logger.EventType(evt.Event))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account by email: %w", err)
	}
	return acct, nil
}

func parseBillingDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
