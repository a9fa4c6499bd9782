package entitlement

import (
	"time"

	"github.com/google/uuid"
)

// PlanType identifies the commercial plan an account is on.
type PlanType string

const (
	PlanFree    PlanType = "free"
	PlanCredit  PlanType = "credit"
	PlanMonthly PlanType = "monthly"
	PlanAnnual  PlanType = "annual"
	PlanAdmin   PlanType = "admin"
	PlanComped  PlanType = "comped"
	PlanPromo   PlanType = "promo"
	PlanPartner PlanType = "partner"
	PlanGift    PlanType = "gift"
)

// SubscriptionStatus represents the billing state of a subscription-based plan.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusPending   SubscriptionStatus = "pending"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// CreditsUnlimited is the sentinel balance granted to subscription tiers.
// Subscription access is governed by status and fair use, not by the balance,
// so the value only needs to be unreachable by normal consumption.
const CreditsUnlimited = 999999

// Account is the entitlement-relevant projection of an account row.
// CreditsRemaining and CreditsExpiresAt are only meaningful when
// PlanType == PlanCredit.
type Account struct {
	ID                 uuid.UUID
	Email              string
	Name               string
	PlanType           PlanType
	SubscriptionStatus SubscriptionStatus
	SubscriptionID     *string
	TrialEndsAt        *time.Time
	CreditsRemaining   *int
	CreditsExpiresAt   *time.Time
	PlanStartedAt      *time.Time
	NextBillingAt      *time.Time
	CreatedAt          time.Time
}

// IsSubscriptionPlan reports whether the plan is governed by subscription
// status and monthly fair use rather than trial windows or credit balances.
func (a *Account) IsSubscriptionPlan() bool {
	switch a.PlanType {
	case PlanMonthly, PlanAnnual, PlanAdmin, PlanComped, PlanPromo, PlanPartner, PlanGift:
		return true
	}
	return false
}

// HasCredits reports whether a credit-plan account has a positive balance.
func (a *Account) HasCredits() bool {
	return a.CreditsRemaining != nil && *a.CreditsRemaining > 0
}

// CreditsExpired reports whether the credit balance has passed its expiry.
// Accounts without an expiry never expire.
func (a *Account) CreditsExpired(now time.Time) bool {
	return a.CreditsExpiresAt != nil && a.CreditsExpiresAt.Before(now)
}

// TrialExpired reports whether the free-plan trial window has closed.
func (a *Account) TrialExpired(now time.Time) bool {
	return a.TrialEndsAt != nil && a.TrialEndsAt.Before(now)
}
