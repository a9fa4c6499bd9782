package billing_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analogia-app/engine/internal/billing"
	"github.com/analogia-app/engine/internal/entitlement"
	"github.com/analogia-app/engine/pkg/logger"
)

type fakeAccounts struct {
	byEmail  map[string]*entitlement.Account
	applied  []billing.PlanState
	status   []entitlement.SubscriptionStatus
	created  []string
	applyErr error // one-shot
}

func newFakeAccounts(accounts ...*entitlement.Account) *fakeAccounts {
	fa := &fakeAccounts{byEmail: make(map[string]*entitlement.Account)}
	for _, acct := range accounts {
		fa.byEmail[acct.Email] = acct
	}
	return fa
}

func (f *fakeAccounts) AccountByEmail(_ context.Context, email string) (*entitlement.Account, error) {
	acct, ok := f.byEmail[email]
	if !ok {
		return nil, billing.ErrAccountNotFound
	}
	return acct, nil
}

func (f *fakeAccounts) CreateAccount(_ context.Context, email, name string) (*entitlement.Account, error) {
	acct := &entitlement.Account{ID: uuid.New(), Email: email, Name: name, PlanType: entitlement.PlanFree}
	f.byEmail[email] = acct
	f.created = append(f.created, email)
	return acct, nil
}

func (f *fakeAccounts) ApplyPlan(_ context.Context, _ uuid.UUID, state billing.PlanState) error {
	if err := f.applyErr; err != nil {
		f.applyErr = nil
		return err
	}
	f.applied = append(f.applied, state)
	return nil
}

func (f *fakeAccounts) UpdateSubscriptionStatus(_ context.Context, _ uuid.UUID, status entitlement.SubscriptionStatus) error {
	f.status = append(f.status, status)
	return nil
}

type fakeGranter struct {
	granted  int
	grantErr error // one-shot
}

func (f *fakeGranter) GrantCredits(_ context.Context, _ uuid.UUID, amount int) (bool, error) {
	if err := f.grantErr; err != nil {
		f.grantErr = nil
		return false, err
	}
	f.granted += amount
	return true, nil
}

type fakeAudit struct {
	entries []billing.AuditEntry
	err     error
}

func (f *fakeAudit) AppendWebhookEvent(_ context.Context, entry billing.AuditEntry) error {
	f.entries = append(f.entries, entry)
	return f.err
}

type fixture struct {
	reconciler *billing.Reconciler
	accounts   *fakeAccounts
	granter    *fakeGranter
	audit      *fakeAudit
}

func newFixture(accounts *fakeAccounts) *fixture {
	granter := &fakeGranter{}
	audit := &fakeAudit{}
	return &fixture{
		reconciler: billing.NewReconciler(accounts, granter, audit, billing.NewMemoryGuard(),
			logger.New(logger.WithOutput(io.Discard))),
		accounts: accounts,
		granter:  granter,
		audit:    audit,
	}
}

func creditPackEvent(orderID, email string) *billing.Event {
	return &billing.Event{
		Event: billing.EventOrderPaid,
		Data: billing.EventData{
			OrderID:  orderID,
			Customer: billing.Customer{Email: email, Name: "Maria Silva"},
			Product:  billing.Product{ID: "creditos", Name: "Pacote de Créditos"},
			Payment:  billing.Payment{Status: "paid", Amount: 4990, Currency: "BRL", Method: "pix"},
		},
	}
}

func subscriptionEvent(eventType, subID, email string) *billing.Event {
	return &billing.Event{
		Event: eventType,
		Data: billing.EventData{
			OrderID:  "ord_" + subID,
			Customer: billing.Customer{Email: email},
			Product:  billing.Product{ID: "mensal"},
			Subscription: &billing.Subscription{
				ID:              subID,
				Status:          "active",
				Plan:            "mensal",
				NextBillingDate: "2026-10-01",
			},
		},
	}
}

func TestProcessCreditPackPurchase(t *testing.T) {
	t.Parallel()

	fx := newFixture(newFakeAccounts())
	evt := creditPackEvent("ord_42", "maria@example.com")

	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))

	assert.Equal(t, []string{"maria@example.com"}, fx.accounts.created)
	require.Len(t, fx.accounts.applied, 1)
	state := fx.accounts.applied[0]
	assert.Equal(t, entitlement.PlanCredit, state.PlanType)
	assert.Equal(t, entitlement.StatusActive, state.SubscriptionStatus)
	assert.Nil(t, state.CreditsRemaining, "additive grants must not set the balance absolutely")
	require.NotNil(t, state.CreditsExpiresAt)
	assert.Equal(t, billing.DefaultCreditGrant, fx.granter.granted)
}

func TestProcessCreditPackReplayGrantsOnce(t *testing.T) {
	t.Parallel()

	fx := newFixture(newFakeAccounts())
	evt := creditPackEvent("ord_42", "maria@example.com")

	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))
	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))

	assert.Equal(t, billing.DefaultCreditGrant, fx.granter.granted, "replay must not double-grant")
	assert.Len(t, fx.accounts.applied, 1)
	assert.Len(t, fx.audit.entries, 2, "every delivery is audited, including duplicates")
}

func TestProcessSubscriptionCreated(t *testing.T) {
	t.Parallel()

	fx := newFixture(newFakeAccounts())
	evt := subscriptionEvent(billing.EventSubscriptionCreated, "sub_7", "joao@example.com")

	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))

	require.Len(t, fx.accounts.applied, 1)
	state := fx.accounts.applied[0]
	assert.Equal(t, entitlement.PlanMonthly, state.PlanType)
	assert.Equal(t, entitlement.StatusActive, state.SubscriptionStatus)
	require.NotNil(t, state.SubscriptionID)
	assert.Equal(t, "sub_7", *state.SubscriptionID)
	require.NotNil(t, state.CreditsRemaining)
	assert.Equal(t, entitlement.CreditsUnlimited, *state.CreditsRemaining)
	require.NotNil(t, state.NextBillingAt)
	assert.Zero(t, fx.granter.granted, "subscription tiers are absolute sets, not grants")
}

func TestProcessRenewalMatchingSubscription(t *testing.T) {
	t.Parallel()

	subID := "sub_7"
	fx := newFixture(newFakeAccounts(&entitlement.Account{
		ID:             uuid.New(),
		Email:          "joao@example.com",
		PlanType:       entitlement.PlanMonthly,
		SubscriptionID: &subID,
	}))
	evt := subscriptionEvent(billing.EventSubscriptionRenewed, subID, "joao@example.com")

	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))

	require.Len(t, fx.accounts.applied, 1)
	assert.Equal(t, entitlement.PlanMonthly, fx.accounts.applied[0].PlanType)
}

func TestProcessRenewalUnknownSubscription(t *testing.T) {
	t.Parallel()

	stored := "sub_7"
	fx := newFixture(newFakeAccounts(&entitlement.Account{
		ID:             uuid.New(),
		Email:          "joao@example.com",
		PlanType:       entitlement.PlanMonthly,
		SubscriptionID: &stored,
	}))
	evt := subscriptionEvent(billing.EventSubscriptionRenewed, "sub_99", "joao@example.com")

	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))
	assert.Empty(t, fx.accounts.applied, "mismatched subscription id must not mutate the account")
}

func TestProcessCancellationRetainsTier(t *testing.T) {
	t.Parallel()

	subID := "sub_7"
	fx := newFixture(newFakeAccounts(&entitlement.Account{
		ID:             uuid.New(),
		Email:          "joao@example.com",
		PlanType:       entitlement.PlanAnnual,
		SubscriptionID: &subID,
	}))
	evt := subscriptionEvent(billing.EventSubscriptionCancelled, subID, "joao@example.com")

	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))

	assert.Equal(t, []entitlement.SubscriptionStatus{entitlement.StatusCancelled}, fx.accounts.status)
	assert.Empty(t, fx.accounts.applied, "cancellation must not touch the plan tier")
}

func TestProcessRefundDowngradesToFree(t *testing.T) {
	t.Parallel()

	fx := newFixture(newFakeAccounts(&entitlement.Account{
		ID:       uuid.New(),
		Email:    "maria@example.com",
		PlanType: entitlement.PlanCredit,
	}))
	evt := creditPackEvent("ord_42", "maria@example.com")
	evt.Event = billing.EventOrderRefunded

	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))

	require.Len(t, fx.accounts.applied, 1)
	state := fx.accounts.applied[0]
	assert.Equal(t, entitlement.PlanFree, state.PlanType)
	assert.Nil(t, state.SubscriptionID)
	assert.Nil(t, state.NextBillingAt)
	require.NotNil(t, state.CreditsRemaining)
	assert.Zero(t, *state.CreditsRemaining)
}

func TestProcessRetryAfterApplyFailure(t *testing.T) {
	t.Parallel()

	accounts := newFakeAccounts()
	accounts.applyErr = errors.New("connection reset")
	fx := newFixture(accounts)
	evt := creditPackEvent("ord_42", "maria@example.com")

	require.Error(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))
	assert.Empty(t, fx.accounts.applied)
	assert.Zero(t, fx.granter.granted)

	// The provider retries a failed delivery; it must not be dropped as a
	// duplicate of the event that never landed.
	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))
	require.Len(t, fx.accounts.applied, 1)
	assert.Equal(t, entitlement.PlanCredit, fx.accounts.applied[0].PlanType)
	assert.Equal(t, billing.DefaultCreditGrant, fx.granter.granted)
}

func TestProcessRetryAfterGrantFailure(t *testing.T) {
	t.Parallel()

	fx := newFixture(newFakeAccounts())
	fx.granter.grantErr = errors.New("connection reset")
	evt := creditPackEvent("ord_42", "maria@example.com")

	require.Error(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))
	assert.Zero(t, fx.granter.granted)

	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))
	assert.Equal(t, billing.DefaultCreditGrant, fx.granter.granted, "the retried grant applies exactly once")
}

func TestProcessUnknownEventTypeDropped(t *testing.T) {
	t.Parallel()

	fx := newFixture(newFakeAccounts())
	evt := creditPackEvent("ord_42", "maria@example.com")
	evt.Event = "customer.updated"

	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))

	assert.Empty(t, fx.accounts.applied)
	assert.Empty(t, fx.accounts.created)
	assert.Len(t, fx.audit.entries, 1, "unknown events are still audited")
}

func TestProcessUnknownPlanCode(t *testing.T) {
	t.Parallel()

	fx := newFixture(newFakeAccounts())
	evt := creditPackEvent("ord_42", "maria@example.com")
	evt.Data.Product.ID = "produto-fantasma"

	err := fx.reconciler.Process(context.Background(), evt, []byte(`{}`))
	assert.ErrorIs(t, err, billing.ErrUnknownPlanCode)
	assert.Empty(t, fx.accounts.applied)
}

func TestProcessMissingCustomerEmail(t *testing.T) {
	t.Parallel()

	fx := newFixture(newFakeAccounts())
	evt := creditPackEvent("ord_42", "")

	err := fx.reconciler.Process(context.Background(), evt, []byte(`{}`))
	assert.ErrorIs(t, err, billing.ErrMissingCustomer)
}

func TestProcessAuditFailureDoesNotBlock(t *testing.T) {
	t.Parallel()

	fx := newFixture(newFakeAccounts())
	fx.audit.err = errors.New("disk full")
	evt := creditPackEvent("ord_42", "maria@example.com")

	require.NoError(t, fx.reconciler.Process(context.Background(), evt, []byte(`{}`)))
	assert.Equal(t, billing.DefaultCreditGrant, fx.granter.granted)
}

func TestResolvePlanCode(t *testing.T) {
	t.Parallel()

	change, err := billing.ResolvePlanCode("anual")
	require.NoError(t, err)
	assert.Equal(t, entitlement.PlanAnnual, change.Tier)
	assert.False(t, change.Additive)

	_, err = billing.ResolvePlanCode("nope")
	assert.ErrorIs(t, err, billing.ErrUnknownPlanCode)
}
