package modelrouter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/analogia-app/engine/pkg/logger"
)

// Request describes one routed generation call. PrimaryModel and
// FallbackModel come from the admin-configured runtime settings;
// ExplicitModel, when set, overrides the primary. Demote forces the fallback
// model up front (fair-use demotion) without consuming the retry.
type Request struct {
	Messages      []Message
	ExplicitModel string
	PrimaryModel  string
	FallbackModel string
	Demote        bool
}

// Result is a routed generation outcome. Demoted reports that the content
// came from the fallback model, whether through fair use or primary failure.
type Result struct {
	Content string
	Model   string
	Usage   Usage
	Demoted bool
}

// Router issues generation calls with primary/fallback model selection.
// Only the router retries, and only once, via the fallback model; every
// other failure in the engine surfaces immediately.
type Router struct {
	client CompletionClient
	log    *slog.Logger
}

func NewRouter(client CompletionClient, log *slog.Logger) *Router {
	if client == nil {
		panic("modelrouter: CompletionClient is required")
	}
	return &Router{client: client, log: log}
}

// Generate resolves the model pair, attempts the primary, and falls back
// once. When primary and fallback are the same model the original error is
// re-raised without a second network attempt, and credential failures skip
// the fallback entirely.
func (rt *Router) Generate(ctx context.Context, req Request) (*Result, error) {
	primary := req.ExplicitModel
	if primary == "" {
		primary = req.PrimaryModel
	}
	fallback := req.FallbackModel

	if req.Demote && fallback != "" {
		// Fair-use demotion selects the fallback directly; no retry budget is
		// spent on the primary.
		primary = fallback
	}

	if primary == "" {
		return nil, ErrNoModelConfigured
	}

	completion, primaryErr := rt.client.Complete(ctx, primary, req.Messages)
	if primaryErr == nil {
		return &Result{
			Content: completion.Content,
			Model:   primary,
			Usage:   completion.Usage,
			Demoted: req.Demote,
		}, nil
	}

	if fallback == "" || fallback == primary {
		return nil, primaryErr
	}

	// A credential failure is permanent and shared by every model behind the
	// same provider key; a fallback attempt cannot succeed. Propagate it
	// without spending the retry.
	if errors.Is(primaryErr, ErrInvalidCredentials) {
		return nil, primaryErr
	}

	rt.log.WarnContext(ctx, "primary model failed, retrying with fallback",
		logger.Model(primary), slog.String("fallback_model", fallback), logger.Error(primaryErr))

	completion, fallbackErr := rt.client.Complete(ctx, fallback, req.Messages)
	if fallbackErr == nil {
		rt.log.InfoContext(ctx, "generation demoted to fallback model",
			logger.Model(fallback), slog.String("failed_model", primary))
		return &Result{
			Content: completion.Content,
			Model:   fallback,
			Usage:   completion.Usage,
			Demoted: true,
		}, nil
	}

	return nil, classifyPair(primary, primaryErr, fallback, fallbackErr)
}

// classifyPair folds a double failure into one typed error. A permanent
// credential problem wins over transient classes; otherwise the fallback's
// class is preferred since it is the fresher signal. Unclassified failures
// embed both underlying messages.
func classifyPair(primary string, primaryErr error, fallback string, fallbackErr error) error {
	for _, sentinel := range []error{ErrInvalidCredentials, ErrRateLimited, ErrProviderUnavailable} {
		if errors.Is(fallbackErr, sentinel) || errors.Is(primaryErr, sentinel) {
			return fmt.Errorf("%w: primary %s: %v; fallback %s: %v",
				sentinel, primary, primaryErr, fallback, fallbackErr)
		}
	}
	return fmt.Errorf("%w: primary %s: %v; fallback %s: %v",
		ErrGenerationFailed, primary, primaryErr, fallback, fallbackErr)
}
