package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/assignmentpoint-backend/internal/ledger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, ledger.Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	wallets, err := ledger.NewService(ledger.NewRepository(client.DB()), client, nil, nil)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(client.DB()), client, wallets, enums.CurrencyUSD, nil)
	require.NoError(t, err)
	return svc, wallets, client
}

func TestRegisterCustomerWithReferralLinksAgentOnce(t *testing.T) {
	svc, wallets, client := newTestService(t)
	ctx := context.Background()

	agent, err := svc.RegisterSalesAgent(ctx, RegisterSalesAgentInput{UserID: uuid.New(), ReferralCode: " ref42 "})
	require.NoError(t, err)
	assert.Equal(t, "REF42", agent.ReferralCode)

	customerID := uuid.New()
	customer, err := svc.RegisterCustomer(ctx, RegisterCustomerInput{UserID: customerID, ReferralCode: "ref42"})
	require.NoError(t, err)
	require.NotNil(t, customer.SalesAgentID)
	assert.Equal(t, agent.ID, *customer.SalesAgentID)

	again, err := svc.RegisterCustomer(ctx, RegisterCustomerInput{UserID: customerID, ReferralCode: "ref42"})
	require.NoError(t, err)
	assert.Equal(t, customer.ID, again.ID)

	stored, err := NewRepository(client.DB()).FindSalesAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalReferrals)

	account, err := wallets.GetAccountByOwner(ctx, enums.AccountOwnerCustomer, customerID)
	require.NoError(t, err)
	assert.Zero(t, account.BalanceCents)
}

func TestRegisterCustomerRejectsUnknownReferral(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RegisterCustomer(context.Background(), RegisterCustomerInput{UserID: uuid.New(), ReferralCode: "NOPE"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRegisterSalesAgentRejectsTakenCode(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterSalesAgent(ctx, RegisterSalesAgentInput{UserID: uuid.New(), ReferralCode: "TAKEN"})
	require.NoError(t, err)
	_, err = svc.RegisterSalesAgent(ctx, RegisterSalesAgentInput{UserID: uuid.New(), ReferralCode: "taken"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	generated, err := svc.RegisterSalesAgent(ctx, RegisterSalesAgentInput{UserID: uuid.New()})
	require.NoError(t, err)
	assert.Len(t, generated.ReferralCode, 10)
}

func TestRegisterWriterOpensWallet(t *testing.T) {
	svc, wallets, _ := newTestService(t)
	ctx := context.Background()
	managerID := uuid.New()

	writer, err := svc.RegisterWriter(ctx, RegisterWriterInput{UserID: uuid.New(), ManagerID: &managerID})
	require.NoError(t, err)
	assert.Equal(t, enums.WriterAvailable, writer.Availability)

	_, err = wallets.GetAccountByOwner(ctx, enums.AccountOwnerWriter, writer.ID)
	require.NoError(t, err)

	got, err := svc.GetWriter(ctx, writer.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ManagerID)
	assert.Equal(t, managerID, *got.ManagerID)

	self := writer.ID
	_, err = svc.RegisterWriter(ctx, RegisterWriterInput{UserID: uuid.New(), ManagerID: nil})
	require.NoError(t, err)
	_, err = svc.RegisterWriter(ctx, RegisterWriterInput{UserID: self, ManagerID: &self})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetWriterAvailability(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	writer, err := svc.RegisterWriter(ctx, RegisterWriterInput{UserID: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, svc.SetWriterAvailability(ctx, writer.ID, enums.WriterBusy))
	got, err := svc.GetWriter(ctx, writer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WriterBusy, got.Availability)

	assert.True(t, pkgerrors.IsCode(svc.SetWriterAvailability(ctx, writer.ID, "asleep"), pkgerrors.CodeValidation))
	assert.True(t, pkgerrors.IsCode(svc.SetWriterAvailability(ctx, uuid.New(), enums.WriterAway), pkgerrors.CodeNotFound))
}

func TestRecordOrderPlacedFlipsReturningOnSecondOrder(t *testing.T) {
	svc, _, client := newTestService(t)
	ctx := context.Background()

	customer, err := svc.RegisterCustomer(ctx, RegisterCustomerInput{UserID: uuid.New()})
	require.NoError(t, err)

	var snapshots []models.Customer
	for i := 0; i < 2; i++ {
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			updated, err := svc.RecordOrderPlaced(ctx, tx, customer.ID)
			if err != nil {
				return err
			}
			snapshots = append(snapshots, *updated)
			return nil
		})
		require.NoError(t, err)
	}

	require.Len(t, snapshots, 2)
	assert.Equal(t, 1, snapshots[0].TotalOrders)
	assert.False(t, snapshots[0].IsReturning)
	assert.Equal(t, 2, snapshots[1].TotalOrders)
	assert.True(t, snapshots[1].IsReturning)

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := svc.RecordOrderPlaced(ctx, tx, uuid.New())
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRecordOrderCompletedBumpsCounters(t *testing.T) {
	svc, _, client := newTestService(t)
	ctx := context.Background()

	customer, err := svc.RegisterCustomer(ctx, RegisterCustomerInput{UserID: uuid.New()})
	require.NoError(t, err)
	writer, err := svc.RegisterWriter(ctx, RegisterWriterInput{UserID: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.RecordOrderCompleted(ctx, tx, CompletionInput{WriterID: writer.ID, CustomerID: customer.ID, TotalCents: 12_500})
	}))

	gotWriter, err := svc.GetWriter(ctx, writer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotWriter.TotalOrdersCompleted)

	gotCustomer, err := svc.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12_500), gotCustomer.TotalSpentCents)
}

func TestGetMissingProfiles(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.GetCustomer(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.GetWriter(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
