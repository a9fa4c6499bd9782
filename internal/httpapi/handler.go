package httpapi

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/analogia-app/engine/internal/billing"
	"github.com/analogia-app/engine/internal/entitlement"
	"github.com/analogia-app/engine/internal/identity"
	"github.com/analogia-app/engine/internal/ledger"
	"github.com/analogia-app/engine/internal/modelrouter"
	"github.com/analogia-app/engine/internal/store"
	"github.com/analogia-app/engine/pkg/logger"
)

// AccountSource fetches the entitlement projection of an account. Lookups
// for unknown ids return billing.ErrAccountNotFound.
type AccountSource interface {
	AccountByID(ctx context.Context, id uuid.UUID) (*entitlement.Account, error)
}

// SettingsSource fetches the admin-configured runtime settings. Resolved per
// request scope so admin changes apply without a restart.
type SettingsSource interface {
	RuntimeSettings(ctx context.Context) (store.RuntimeSettings, error)
}

// Handler carries the wired engine components behind the HTTP surface.
type Handler struct {
	resolver      *identity.Resolver
	ledger        *ledger.Ledger
	accounts      AccountSource
	settings      SettingsSource
	generator     *modelrouter.Router
	reconciler    *billing.Reconciler
	webhookSecret string
	log           *slog.Logger
}

type Config struct {
	WebhookSecret string `env:"PAYMENT_WEBHOOK_SECRET"`
}

func NewHandler(
	resolver *identity.Resolver,
	ldgr *ledger.Ledger,
	accounts AccountSource,
	settings SettingsSource,
	generator *modelrouter.Router,
	reconciler *billing.Reconciler,
	cfg Config,
	log *slog.Logger,
) *Handler {
	if resolver == nil || ldgr == nil || accounts == nil || settings == nil || generator == nil || reconciler == nil {
		panic("httpapi: all handler dependencies are required")
	}
	return &Handler{
		resolver:      resolver,
		ledger:        ldgr,
		accounts:      accounts,
		settings:      settings,
		generator:     generator,
		reconciler:    reconciler,
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}
}

// account loads the entitlement projection for an authenticated identity.
// Anonymous identities return nil without hitting the store.
func (h *Handler) account(ctx context.Context, id identity.Identity) (*entitlement.Account, error) {
	accountID, ok := id.AccountID()
	if !ok {
		return nil, nil
	}
	return h.accounts.AccountByID(ctx, accountID)
}

// rules resolves the evaluation rules for one request from the runtime
// settings row, falling back to product defaults when the row is
// unavailable. A missing settings row must not turn into a denial.
func (h *Handler) rules(ctx context.Context) (entitlement.Rules, store.RuntimeSettings) {
	rules := entitlement.DefaultRules()

	settings, err := h.settings.RuntimeSettings(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "failed to load runtime settings, using defaults",
			logger.Error(err))
		return rules, store.RuntimeSettings{}
	}
	if settings.FairUseLimit > 0 {
		rules.FairUseLimit = settings.FairUseLimit
	}
	return rules, settings
}
