package entitlement

// Default plan limits. The paid fair-use ceiling can be overridden per
// request scope through the runtime settings row; the rest are product
// constants.
const (
	// DefaultAnonymousLimit is the lifetime generation ceiling per anonymous token.
	DefaultAnonymousLimit = 9
	// DefaultFreeLimit is the lifetime generation ceiling on the free plan.
	DefaultFreeLimit = 30
	// DefaultFreeTrialDays is the free-plan trial window length.
	DefaultFreeTrialDays = 90
	// DefaultCreditGrant is the credit allotment of a credit-pack purchase.
	DefaultCreditGrant = 300
	// DefaultCreditValidityMonths is how long purchased credits stay usable.
	DefaultCreditValidityMonths = 12
	// DefaultFairUseLimit is the monthly soft ceiling on paid plans before
	// generations are demoted to the fallback model.
	DefaultFairUseLimit = 1000
)

// Rules carries the limit values an evaluation runs against. A Rules value is
// resolved per request scope so tests and admin configuration can substitute
// limits without shared state.
type Rules struct {
	AnonymousLimit int
	FreeLimit      int
	CreditGrant    int
	FairUseLimit   int
}

// DefaultRules returns the product-default limits.
func DefaultRules() Rules {
	return Rules{
		AnonymousLimit: DefaultAnonymousLimit,
		FreeLimit:      DefaultFreeLimit,
		CreditGrant:    DefaultCreditGrant,
		FairUseLimit:   DefaultFairUseLimit,
	}
}
