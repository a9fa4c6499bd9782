// Package billing reconciles payment-provider webhook events into account
// plan and credit state: HMAC signature verification, audit-first
// persistence, plan-code mapping, and idempotent state transitions.
package billing
