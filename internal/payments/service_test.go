package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/assignmentpoint-backend/internal/ledger"
	"github.com/angelmondragon/assignmentpoint-backend/internal/users"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/stripe"
)

type stubGateway struct {
	calls []stripe.DepositIntentParams
	err   error
}

func (g *stubGateway) CreateDepositIntent(ctx context.Context, in stripe.DepositIntentParams) (*stripe.DepositIntent, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.calls = append(g.calls, in)
	return &stripe.DepositIntent{
		ID:           "pi_" + in.PaymentID[:8],
		ClientSecret: "pi_secret_" + in.PaymentID[:8],
		Status:       "requires_payment_method",
	}, nil
}

type harness struct {
	client   *db.Client
	svc      Service
	gateway  *stubGateway
	wallets  ledger.Service
	profiles users.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := dbtest.Open(t)
	wallets, err := ledger.NewService(ledger.NewRepository(client.DB()), client, nil, nil)
	require.NoError(t, err)
	profiles, err := users.NewService(users.NewRepository(client.DB()), client, wallets, enums.CurrencyUSD, nil)
	require.NoError(t, err)

	h := &harness{client: client, gateway: &stubGateway{}, wallets: wallets, profiles: profiles}
	h.svc, err = NewService(Deps{
		Repo:      NewRepository(client.DB()),
		Tx:        client,
		Gateway:   h.gateway,
		Customers: profiles,
		Wallets:   wallets,
		Outbox:    outbox.NewService(outbox.NewRepository(client.DB()), nil),
	})
	require.NoError(t, err)
	return h
}

func (h *harness) customer(t *testing.T) uuid.UUID {
	t.Helper()
	c, err := h.profiles.RegisterCustomer(context.Background(), users.RegisterCustomerInput{UserID: uuid.New()})
	require.NoError(t, err)
	return c.ID
}

func (h *harness) customerAccount(t *testing.T, customerID uuid.UUID) ledgerAccount {
	t.Helper()
	account, err := h.wallets.GetAccountByOwner(context.Background(), enums.AccountOwnerCustomer, customerID)
	require.NoError(t, err)
	return ledgerAccount{id: account.ID, balance: account.BalanceCents, deposited: account.LifetimeDepositedCents, lastDeposit: account.LastDepositAt != nil}
}

type ledgerAccount struct {
	id          uuid.UUID
	balance     int64
	deposited   int64
	lastDeposit bool
}

func TestCreateDepositRecordsPendingPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customerID := h.customer(t)

	result, err := h.svc.CreateDeposit(ctx, CreateDepositInput{CustomerID: customerID, AmountCents: 5_000, IdempotencyKey: "dep-1"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, result.Payment.Status)
	assert.NotEmpty(t, result.ClientSecret)
	assert.Equal(t, int64(5_000), result.Payment.AmountCents)

	require.Len(t, h.gateway.calls, 1)
	call := h.gateway.calls[0]
	assert.Equal(t, customerID.String(), call.CustomerID)
	assert.Equal(t, result.Payment.ID.String(), call.PaymentID)
	assert.Equal(t, "USD", call.Currency)
	assert.Equal(t, "dep-1", call.IdempotencyKey)

	assert.Zero(t, h.customerAccount(t, customerID).balance)

	deposits, err := h.svc.ListDeposits(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, result.Payment.ExternalRef, deposits[0].ExternalRef)
}

func TestCreateDepositFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customerID := h.customer(t)

	_, err := h.svc.CreateDeposit(ctx, CreateDepositInput{CustomerID: customerID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.CreateDeposit(ctx, CreateDepositInput{CustomerID: uuid.New(), AmountCents: 100})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	h.gateway.err = errors.New("card network down")
	_, err = h.svc.CreateDeposit(ctx, CreateDepositInput{CustomerID: customerID, AmountCents: 100})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	deposits, err := h.svc.ListDeposits(ctx, customerID)
	require.NoError(t, err)
	assert.Empty(t, deposits)
}

func TestDepositConfirmedCreditsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customerID := h.customer(t)
	result, err := h.svc.CreateDeposit(ctx, CreateDepositInput{CustomerID: customerID, AmountCents: 5_000})
	require.NoError(t, err)
	ref := result.Payment.ExternalRef

	payment, err := h.svc.DepositConfirmed(ctx, DepositConfirmation{AmountCents: 5_000, ExternalRef: ref})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	assert.NotNil(t, payment.CompletedAt)

	replay, err := h.svc.DepositConfirmed(ctx, DepositConfirmation{AmountCents: 5_000, ExternalRef: ref})
	require.NoError(t, err)
	assert.Equal(t, payment.ID, replay.ID)

	account := h.customerAccount(t, customerID)
	assert.Equal(t, int64(5_000), account.balance)
	assert.Equal(t, int64(5_000), account.deposited)
	assert.True(t, account.lastDeposit)

	report, err := h.wallets.Audit(ctx, account.id)
	require.NoError(t, err)
	assert.Equal(t, 1, report.EntryCount)
	assert.True(t, report.Consistent)

	events, err := outbox.NewRepository(h.client.DB()).ListByAggregate(h.client.DB(), enums.AggregatePayment, payment.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventDepositConfirmed, events[0].EventType)
}

func TestDepositConfirmedAmountMismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customerID := h.customer(t)
	result, err := h.svc.CreateDeposit(ctx, CreateDepositInput{CustomerID: customerID, AmountCents: 5_000})
	require.NoError(t, err)

	_, err = h.svc.DepositConfirmed(ctx, DepositConfirmation{AmountCents: 4_999, ExternalRef: result.Payment.ExternalRef})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	assert.Zero(t, h.customerAccount(t, customerID).balance)
}

func TestDepositConfirmedForUnknownReference(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customerID := h.customer(t)

	_, err := h.svc.DepositConfirmed(ctx, DepositConfirmation{AmountCents: 2_500, ExternalRef: "pi_external"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	payment, err := h.svc.DepositConfirmed(ctx, DepositConfirmation{CustomerID: customerID, AmountCents: 2_500, ExternalRef: "pi_external"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, int64(2_500), h.customerAccount(t, customerID).balance)
}

func TestDepositFailed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customerID := h.customer(t)
	result, err := h.svc.CreateDeposit(ctx, CreateDepositInput{CustomerID: customerID, AmountCents: 5_000})
	require.NoError(t, err)
	ref := result.Payment.ExternalRef

	failed, err := h.svc.DepositFailed(ctx, DepositFailure{ExternalRef: ref, Reason: "card_declined"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, failed.Status)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "card_declined", *failed.FailureReason)
	assert.Zero(t, h.customerAccount(t, customerID).balance)

	retried, err := h.svc.DepositConfirmed(ctx, DepositConfirmation{AmountCents: 5_000, ExternalRef: ref})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, retried.Status)
	assert.Nil(t, retried.FailureReason)

	late, err := h.svc.DepositFailed(ctx, DepositFailure{ExternalRef: ref, Reason: "late"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, late.Status)
	assert.Equal(t, int64(5_000), h.customerAccount(t, customerID).balance)

	_, err = h.svc.DepositFailed(ctx, DepositFailure{ExternalRef: " "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	writer, err := h.profiles.RegisterWriter(ctx, users.RegisterWriterInput{UserID: uuid.New()})
	require.NoError(t, err)
	account, err := h.wallets.GetAccountByOwner(ctx, enums.AccountOwnerWriter, writer.ID)
	require.NoError(t, err)
	_, err = h.wallets.Credit(ctx, ledger.PostInput{AccountID: account.ID, AmountCents: 4_000, Type: enums.LedgerEntryWriterEarning})
	require.NoError(t, err)

	result, err := h.svc.Withdraw(ctx, WithdrawInput{OwnerType: enums.AccountOwnerWriter, OwnerID: writer.ID, AmountCents: 1_500})
	require.NoError(t, err)
	assert.Equal(t, int64(2_500), result.BalanceCents)
	assert.Equal(t, enums.LedgerEntryWithdrawal, result.Entry.Type)
	assert.Equal(t, int64(-1_500), result.Entry.AmountCents)

	_, err = h.svc.Withdraw(ctx, WithdrawInput{OwnerType: enums.AccountOwnerWriter, OwnerID: writer.ID, AmountCents: 9_000})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	_, err = h.svc.Withdraw(ctx, WithdrawInput{OwnerType: enums.AccountOwnerCustomer, OwnerID: h.customer(t), AmountCents: 100})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.Withdraw(ctx, WithdrawInput{OwnerType: enums.AccountOwnerWriter, OwnerID: writer.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Withdraw(ctx, WithdrawInput{OwnerType: enums.AccountOwnerManager, OwnerID: uuid.New(), AmountCents: 100})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
