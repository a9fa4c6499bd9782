// Package entitlement decides, for every generation request, whether the
// caller may proceed. It owns the plan vocabulary (plan types, subscription
// statuses, limits) and the decision table that turns an identity, its
// account state, and its usage counts into an allow/deny verdict with a
// machine-readable reason code.
package entitlement
