package entitlement

import (
	"context"
	"time"

	"github.com/analogia-app/engine/internal/identity"
)

// UsageReader provides the generation counts an evaluation needs. The count
// is plan-appropriate (lifetime for anonymous/free identities, current
// calendar month for paid plans) and degrades to the advisory cookie counter
// when the primary store read is blocked, so it never fails.
type UsageReader interface {
	CountUsage(ctx context.Context, id identity.Identity) (used int, fromFallback bool)
}

// Evaluator computes the allow/deny verdict for a generation request.
// It is a pure function over its inputs except for the counting reads it
// performs through the UsageReader; it performs no writes.
type Evaluator struct {
	rules Rules
}

func NewEvaluator(rules Rules) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate applies the plan decision table in precedence order and returns
// the verdict with the usage numbers it was based on. The account argument
// must be nil exactly when the identity is anonymous.
func (e *Evaluator) Evaluate(ctx context.Context, usage UsageReader, id identity.Identity, acct *Account, now time.Time) Verdict {
	if id.IsAnonymous() || acct == nil {
		return e.evaluateAnonymous(ctx, usage, id)
	}

	switch {
	case acct.PlanType == PlanFree:
		return e.evaluateFree(ctx, usage, id, acct, now)
	case acct.PlanType == PlanCredit:
		return e.evaluateCredit(acct, now)
	case acct.IsSubscriptionPlan():
		return e.evaluateSubscription(ctx, usage, id, acct)
	default:
		// Unknown plan types fail closed with the free-plan reason so the
		// client gets an upgrade path instead of an opaque error.
		return Verdict{Allowed: false, Reason: ReasonLimitReachedFree, Used: 0, Limit: 0}
	}
}

func (e *Evaluator) evaluateAnonymous(ctx context.Context, usage UsageReader, id identity.Identity) Verdict {
	used, _ := usage.CountUsage(ctx, id)
	limit := e.rules.AnonymousLimit

	if used >= limit {
		return Verdict{Allowed: false, Reason: ReasonAnonymousLimitReached, Used: used, Limit: limit}
	}
	return Verdict{Allowed: true, Reason: ReasonOK, Used: used, Limit: limit}
}

func (e *Evaluator) evaluateFree(ctx context.Context, usage UsageReader, id identity.Identity, acct *Account, now time.Time) Verdict {
	used, _ := usage.CountUsage(ctx, id)
	limit := e.rules.FreeLimit

	// Trial expiry outranks the lifetime count: an expired trial denies even
	// an account that never generated anything.
	if acct.TrialExpired(now) {
		return Verdict{Allowed: false, Reason: ReasonTrialExpired, Used: used, Limit: limit}
	}
	if used >= limit {
		return Verdict{Allowed: false, Reason: ReasonLimitReachedFree, Used: used, Limit: limit}
	}
	return Verdict{Allowed: true, Reason: ReasonOK, Used: used, Limit: limit}
}

func (e *Evaluator) evaluateCredit(acct *Account, now time.Time) Verdict {
	limit := e.rules.CreditGrant
	used := limit
	if acct.CreditsRemaining != nil {
		used = limit - *acct.CreditsRemaining
		if used < 0 {
			used = 0
		}
	}

	if !acct.HasCredits() {
		return Verdict{Allowed: false, Reason: ReasonNoCredits, Used: used, Limit: limit}
	}
	if acct.CreditsExpired(now) {
		return Verdict{Allowed: false, Reason: ReasonCreditsExpired, Used: used, Limit: limit}
	}
	return Verdict{Allowed: true, Reason: ReasonOK, Used: used, Limit: limit}
}

func (e *Evaluator) evaluateSubscription(ctx context.Context, usage UsageReader, id identity.Identity, acct *Account) Verdict {
	used, _ := usage.CountUsage(ctx, id)
	limit := e.rules.FairUseLimit

	if acct.SubscriptionStatus != StatusActive {
		return Verdict{Allowed: false, Reason: ReasonSubscriptionInactive, Used: used, Limit: limit}
	}

	// Fair use never hard-blocks a paid account: the verdict stays allowed
	// and the reason tells the caller to demote to the fallback model.
	if used >= limit {
		return Verdict{Allowed: true, Reason: ReasonFairUsePaidLimit, Used: used, Limit: limit}
	}
	return Verdict{Allowed: true, Reason: ReasonOK, Used: used, Limit: limit}
}
