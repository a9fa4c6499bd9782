package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/analogia-app/engine/internal/entitlement"
	"github.com/analogia-app/engine/internal/modelrouter"
)

// Analogy is one generated analogy in a success response.
type Analogy struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UsageSnapshot is the usage block attached to denials and usage lookups.
type UsageSnapshot struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// TokenUsage is the provider-reported accounting attached to successes.
// All fields default to zero when the provider omits them.
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
}

type generateResponse struct {
	Analogies []Analogy  `json:"analogies"`
	Model     string     `json:"model"`
	Demoted   bool       `json:"demoted,omitempty"`
	Usage     TokenUsage `json:"usage"`
}

type usageResponse struct {
	Allowed bool          `json:"allowed"`
	Reason  string        `json:"reason"`
	Usage   UsageSnapshot `json:"usage"`
}

// errorResponse is the denial and failure envelope. Error carries the stable
// machine-readable code; Message is for humans and may change freely.
type errorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Usage   *UsageSnapshot `json:"usage,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: code, Message: message})
}

// respondDenial renders an entitlement denial: HTTP 403, the reason code,
// and the usage numbers the verdict was based on.
func respondDenial(w http.ResponseWriter, verdict entitlement.Verdict) {
	respondJSON(w, http.StatusForbidden, errorResponse{
		Error:   string(verdict.Reason),
		Message: denialMessage(verdict.Reason),
		Usage: &UsageSnapshot{
			Used:      verdict.Used,
			Limit:     verdict.Limit,
			Remaining: verdict.Remaining(),
		},
	})
}

func denialMessage(reason entitlement.ReasonCode) string {
	switch reason {
	case entitlement.ReasonAnonymousLimitReached:
		return "You have used all free generations. Create an account to continue."
	case entitlement.ReasonTrialExpired:
		return "Your free trial has ended. Upgrade to keep generating."
	case entitlement.ReasonLimitReachedFree:
		return "You have reached the free plan limit. Upgrade to keep generating."
	case entitlement.ReasonNoCredits:
		return "You have no credits left. Buy a credit pack to continue."
	case entitlement.ReasonCreditsExpired:
		return "Your credits have expired. Buy a new credit pack to continue."
	case entitlement.ReasonSubscriptionInactive:
		return "Your subscription is not active. Check your billing status."
	default:
		return "Generation is not available for this account."
	}
}

func tokenUsage(u modelrouter.Usage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		Cost:             u.Cost,
	}
}
