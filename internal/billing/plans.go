package billing

import "github.com/analogia-app/engine/internal/entitlement"

// PlanChange is the resolved effect of a provider plan code: which tier the
// account moves to and what credit allotment comes with it. Subscription
// tiers carry the unlimited sentinel as an absolute value; credit packs are
// additive grants and go through the idempotency guard instead.
type PlanChange struct {
	Tier                 entitlement.PlanType
	Credits              int
	CreditValidityMonths int
	Additive             bool
}

// DefaultCreditGrant is the allotment of a single credit-pack purchase.
const DefaultCreditGrant = entitlement.DefaultCreditGrant

// planCodes maps the payment provider's product/plan identifiers to internal
// tiers. The provider configures these strings on its side; unknown codes are
// rejected with ErrUnknownPlanCode so a misconfigured product never silently
// lands an account on the wrong tier.
var planCodes = map[string]PlanChange{
	"mensal": {
		Tier:    entitlement.PlanMonthly,
		Credits: entitlement.CreditsUnlimited,
	},
	"anual": {
		Tier:    entitlement.PlanAnnual,
		Credits: entitlement.CreditsUnlimited,
	},
	"creditos": {
		Tier:                 entitlement.PlanCredit,
		Credits:              DefaultCreditGrant,
		CreditValidityMonths: entitlement.DefaultCreditValidityMonths,
		Additive:             true,
	},
	"parceiro": {
		Tier:    entitlement.PlanPartner,
		Credits: entitlement.CreditsUnlimited,
	},
	"presente": {
		Tier:    entitlement.PlanGift,
		Credits: entitlement.CreditsUnlimited,
	},
}

// ResolvePlanCode looks up the tier change for a provider plan code.
func ResolvePlanCode(code string) (PlanChange, error) {
	change, ok := planCodes[code]
	if !ok {
		return PlanChange{}, ErrUnknownPlanCode
	}
	return change, nil
}
