package modelrouter

import "errors"

// Typed provider failures. The HTTP layer maps these to user-visible status
// codes; everything not covered is wrapped in ErrGenerationFailed.
var (
	ErrInvalidCredentials  = errors.New("modelrouter.invalid_credentials")
	ErrRateLimited         = errors.New("modelrouter.rate_limited")
	ErrProviderUnavailable = errors.New("modelrouter.provider_unavailable")
	ErrGenerationFailed    = errors.New("modelrouter.generation_failed")
	ErrNoModelConfigured   = errors.New("modelrouter.no_model_configured")
	ErrEmptyCompletion     = errors.New("modelrouter.empty_completion")
)
