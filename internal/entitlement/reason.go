package entitlement

// ReasonCode is the machine-readable verdict reason returned alongside every
// access decision. Client UIs branch on these codes, never on the
// human-readable messages.
type ReasonCode string

const (
	ReasonOK                    ReasonCode = "ok"
	ReasonAnonymousLimitReached ReasonCode = "anonymous_limit_reached"
	ReasonTrialExpired          ReasonCode = "trial_expired"
	ReasonLimitReachedFree      ReasonCode = "limit_reached_free"
	ReasonNoCredits             ReasonCode = "no_credits"
	ReasonCreditsExpired        ReasonCode = "credits_expired"
	ReasonSubscriptionInactive  ReasonCode = "subscription_inactive"
	ReasonFairUsePaidLimit      ReasonCode = "fair_use_paid_limit"
)

// Verdict is the result of an access evaluation: whether generation may
// proceed, why, and the usage numbers the decision was based on.
type Verdict struct {
	Allowed bool
	Reason  ReasonCode
	Used    int
	Limit   int
}

// Remaining returns the generations left under the verdict's limit, never
// negative. Unlimited verdicts (Limit <= 0) report zero.
func (v Verdict) Remaining() int {
	if v.Limit <= 0 {
		return 0
	}
	if v.Used >= v.Limit {
		return 0
	}
	return v.Limit - v.Used
}

// Demote reports whether the caller should route the generation to the
// fallback model. Fair use on paid plans demotes instead of denying.
func (v Verdict) Demote() bool {
	return v.Reason == ReasonFairUsePaidLimit
}
