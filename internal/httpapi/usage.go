package httpapi

import (
	"net/http"
	"time"

	"github.com/analogia-app/engine/internal/entitlement"
	"github.com/analogia-app/engine/pkg/logger"
)

// Usage is GET /api/usage: the caller's current verdict and usage numbers
// without recording or consuming anything.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := h.resolver.Resolve(w, r)

	acct, err := h.account(ctx, id)
	if err != nil {
		h.log.ErrorContext(ctx, "failed to load account for usage lookup", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "account_unavailable", "could not load your account")
		return
	}

	rules, _ := h.rules(ctx)
	verdict := entitlement.NewEvaluator(rules).Evaluate(ctx, h.ledger.ForRequest(w, r), id, acct, time.Now())

	respondJSON(w, http.StatusOK, usageResponse{
		Allowed: verdict.Allowed,
		Reason:  string(verdict.Reason),
		Usage: UsageSnapshot{
			Used:      verdict.Used,
			Limit:     verdict.Limit,
			Remaining: verdict.Remaining(),
		},
	})
}
