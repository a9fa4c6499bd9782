package billing

import "errors"

var (
	ErrSecretNotConfigured = errors.New("billing.webhook_secret_not_configured")
	ErrInvalidSignature    = errors.New("billing.invalid_signature")
	ErrMalformedPayload    = errors.New("billing.malformed_payload")
	ErrUnknownPlanCode     = errors.New("billing.unknown_plan_code")
	ErrMissingCustomer     = errors.New("billing.missing_customer_email")
	ErrAccountNotFound     = errors.New("billing.account_not_found")
)
