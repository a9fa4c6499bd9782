package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/analogia-app/engine/internal/entitlement"
	"github.com/analogia-app/engine/internal/modelrouter"
	"github.com/analogia-app/engine/pkg/logger"
)

type generateRequest struct {
	Concept  string `json:"concept"`
	Audience string `json:"audience"`
	Model    string `json:"model,omitempty"`
}

// Generate is POST /api/generate: resolve the caller identity, evaluate
// entitlement, record the attempt, route the generation call, and debit a
// credit on success for credit-plan accounts.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	req.Concept = strings.TrimSpace(req.Concept)
	req.Audience = strings.TrimSpace(req.Audience)
	if req.Concept == "" || req.Audience == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "concept and audience are required")
		return
	}

	id := h.resolver.Resolve(w, r)

	acct, err := h.account(ctx, id)
	if err != nil {
		h.log.ErrorContext(ctx, "failed to load account for generation",
			logger.Error(err))
		respondError(w, http.StatusInternalServerError, "account_unavailable", "could not load your account")
		return
	}

	rules, settings := h.rules(ctx)
	reqLedger := h.ledger.ForRequest(w, r)

	verdict := entitlement.NewEvaluator(rules).Evaluate(ctx, reqLedger, id, acct, time.Now())
	if !verdict.Allowed {
		h.log.InfoContext(ctx, "generation denied",
			logger.Reason(string(verdict.Reason)), slog.String("identity", id.String()))
		respondDenial(w, verdict)
		return
	}

	// Charge on attempt: the record is written before the provider call so a
	// failed generation still counts against the caller's allowance.
	reqLedger.RecordGeneration(ctx, id, req.Concept, req.Audience)

	result, err := h.generator.Generate(ctx, modelrouter.Request{
		Messages:      analogyMessages(req.Concept, req.Audience),
		ExplicitModel: req.Model,
		PrimaryModel:  settings.PrimaryModel,
		FallbackModel: settings.FallbackModel,
		Demote:        verdict.Demote(),
	})
	if err != nil {
		respondGenerationError(w, err)
		return
	}

	if acct != nil && acct.PlanType == entitlement.PlanCredit {
		consumed, err := h.ledger.ConsumeCredit(ctx, acct.ID)
		if err != nil || !consumed {
			// The evaluation already approved this request; a lost race on
			// the last credit must not take back the content the user is
			// about to receive.
			h.log.WarnContext(ctx, "credit debit after successful generation did not apply",
				logger.AccountID(acct.ID.String()), logger.Error(err))
		}
	}

	respondJSON(w, http.StatusOK, generateResponse{
		Analogies: parseAnalogies(req.Concept, result.Content),
		Model:     result.Model,
		Demoted:   result.Demoted,
		Usage:     tokenUsage(result.Usage),
	})
}

// respondGenerationError maps routed provider failures to HTTP statuses:
// credential failures and generic errors are a bad gateway, rate limits and
// availability failures ask the client to retry.
func respondGenerationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, modelrouter.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, "rate_limited", "the generation provider is rate limiting, retry later")
	case errors.Is(err, modelrouter.ErrProviderUnavailable):
		respondError(w, http.StatusServiceUnavailable, "provider_unavailable", "the generation provider is temporarily unavailable")
	case errors.Is(err, modelrouter.ErrInvalidCredentials):
		respondError(w, http.StatusBadGateway, "generation_failed", "the generation provider rejected our credentials")
	default:
		respondError(w, http.StatusBadGateway, "generation_failed", "generation failed, please try again")
	}
}

// parseAnalogies decodes the model output. The prompt asks for a JSON array
// of {title, description}; models occasionally wrap it in prose or fences,
// so decoding falls back to treating the whole completion as one analogy.
func parseAnalogies(concept, content string) []Analogy {
	trimmed := strings.TrimSpace(content)
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			var analogies []Analogy
			if err := json.Unmarshal([]byte(trimmed[start:end+1]), &analogies); err == nil && len(analogies) > 0 {
				return analogies
			}
		}
	}
	return []Analogy{{Title: concept, Description: trimmed}}
}

// analogyMessages builds the chat prompt for one generation.
func analogyMessages(concept, audience string) []modelrouter.Message {
	return []modelrouter.Message{
		{
			Role: "system",
			Content: "You write vivid, accurate analogies. Respond with a JSON array of " +
				`objects shaped {"title": string, "description": string} and nothing else.`,
		},
		{
			Role:    "user",
			Content: "Explain the concept " + strconv.Quote(concept) + " with three analogies tailored to this audience: " + audience + ".",
		},
	}
}
