package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/analogia-app/engine/internal/identity"
	"github.com/analogia-app/engine/pkg/cookie"
	"github.com/analogia-app/engine/pkg/logger"
	"github.com/analogia-app/engine/pkg/pg"
)

// GenerationRecord is the append-only fact written once per tracked
// generation attempt. Exactly one of AccountID/AnonymousToken is set.
type GenerationRecord struct {
	AccountID      *uuid.UUID
	AnonymousToken string
	Concept        string
	Audience       string
	CreatedAt      time.Time
}

// AccessSnapshot is the result of the store's access-check procedures:
// the plan-appropriate usage count and limit for an identity.
type AccessSnapshot struct {
	CanGenerate bool
	Reason      string
	Used        int
	Limit       int
}

// Store is the persistence surface the ledger needs. Credit mutations must be
// atomic server-side procedures; the ledger never does read-modify-write on
// balances.
type Store interface {
	CheckUserAccess(ctx context.Context, accountID uuid.UUID) (AccessSnapshot, error)
	CheckAnonymousAccess(ctx context.Context, token string) (AccessSnapshot, error)
	InsertGeneration(ctx context.Context, rec GenerationRecord) error
	ConsumeCredit(ctx context.Context, accountID uuid.UUID) (bool, error)
	AddCredits(ctx context.Context, accountID uuid.UUID, amount int) (bool, error)
}

// Ledger records generations, debits and grants credits, and answers usage
// counts with a documented trust hierarchy: the primary store wins whenever
// it is readable; the signed cookie counter is an advisory lower bound used
// only when the primary read path is blocked.
type Ledger struct {
	store   Store
	cookies *cookie.Manager
	log     *slog.Logger
}

func New(store Store, cookies *cookie.Manager, log *slog.Logger) *Ledger {
	if store == nil {
		panic("ledger: Store is required")
	}
	if cookies == nil {
		panic("ledger: cookie manager is required")
	}
	return &Ledger{
		store:   store,
		cookies: cookies,
		log:     log,
	}
}

// ConsumeCredit atomically decrements one credit through the store's remote
// procedure. Returns false without decrementing when the balance is already
// zero. Safe under concurrent invocation for the same account.
func (l *Ledger) ConsumeCredit(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return l.store.ConsumeCredit(ctx, accountID)
}

// GrantCredits atomically adds credits through the store's remote procedure.
// Used only by webhook reconciliation; idempotency is the caller's concern.
func (l *Ledger) GrantCredits(ctx context.Context, accountID uuid.UUID, amount int) (bool, error) {
	return l.store.AddCredits(ctx, accountID, amount)
}

// ForRequest binds the ledger to a request/response pair so counting and
// recording can reach the fallback cookie counters. The returned value is
// request-scoped and must not outlive the request.
func (l *Ledger) ForRequest(w http.ResponseWriter, r *http.Request) *RequestLedger {
	return &RequestLedger{ledger: l, w: w, r: r}
}

// RequestLedger is the request-scoped view of the ledger.
type RequestLedger struct {
	ledger *Ledger
	w      http.ResponseWriter
	r      *http.Request
}

// CountUsage returns the identity's generation count. It asks the primary
// store first; when that read is blocked (for example row-level security
// denies the count), it falls back to the signed cookie counter and reports
// fromFallback=true. Read failures never reset the fallback counter.
func (rl *RequestLedger) CountUsage(ctx context.Context, id identity.Identity) (used int, fromFallback bool) {
	snapshot, err := rl.primarySnapshot(ctx, id)
	if err != nil {
		// Row-level security denying the count is the expected degradation;
		// anything else reaching this path deserves a louder signal.
		if pg.IsInsufficientPrivilegeError(err) {
			rl.ledger.log.InfoContext(ctx, "count read blocked by row-level security, using cookie fallback",
				slog.String("identity", id.String()))
		} else {
			rl.ledger.log.WarnContext(ctx, "primary usage count unavailable, using cookie fallback",
				slog.String("identity", id.String()), logger.Error(err))
		}
		return rl.ledger.cookies.GetCounter(rl.r, counterCookieName(id)), true
	}
	return snapshot.Used, false
}

// RecordGeneration appends a GenerationRecord and bumps the fallback counter
// cookie for the identity's category. Both writes are best effort: failures
// are logged and reported in the result, never propagated, because an
// analytics fact must not corrupt the generation response the user already
// received. The caller is free to ignore the result.
func (rl *RequestLedger) RecordGeneration(ctx context.Context, id identity.Identity, concept, audience string) RecordResult {
	result := RecordResult{}

	rec := GenerationRecord{
		Concept:   concept,
		Audience:  audience,
		CreatedAt: time.Now().UTC(),
	}
	if accountID, ok := id.AccountID(); ok {
		rec.AccountID = &accountID
	} else if token, ok := id.AnonymousToken(); ok {
		rec.AnonymousToken = token
	}

	if err := rl.ledger.store.InsertGeneration(ctx, rec); err != nil {
		rl.ledger.log.ErrorContext(ctx, "failed to persist generation record",
			slog.String("identity", id.String()), logger.Error(err))
		result.Err = err
	} else {
		result.Persisted = true
	}

	// The cookie counter increments regardless of the insert outcome so it
	// stays a monotonic lower bound for the fallback read path.
	name := counterCookieName(id)
	next := rl.ledger.cookies.GetCounter(rl.r, name) + 1
	if err := rl.ledger.cookies.SetCounter(rl.w, name, next, cookie.WithMaxAge(identity.CookieTTLSeconds)); err != nil {
		rl.ledger.log.WarnContext(ctx, "failed to update fallback usage counter",
			slog.String("cookie", name), logger.Error(err))
		if result.Err == nil {
			result.Err = err
		}
	} else {
		result.CounterBumped = true
	}

	return result
}

func (rl *RequestLedger) primarySnapshot(ctx context.Context, id identity.Identity) (AccessSnapshot, error) {
	if token, ok := id.AnonymousToken(); ok {
		return rl.ledger.store.CheckAnonymousAccess(ctx, token)
	}
	accountID, _ := id.AccountID()
	return rl.ledger.store.CheckUserAccess(ctx, accountID)
}

// Fallback counter cookie names per identity category.
const (
	CookieAnonymousUsage = "anonymous_usage_used"
	CookieUserUsage      = "user_usage_used"
)

func counterCookieName(id identity.Identity) string {
	if id.IsAnonymous() {
		return CookieAnonymousUsage
	}
	return CookieUserUsage
}

// RecordResult reports what a fire-and-forget RecordGeneration call actually
// accomplished. Callers may ignore it; the contract exists so best-effort
// semantics are visible at the type level.
type RecordResult struct {
	Persisted     bool
	CounterBumped bool
	Err           error
}
