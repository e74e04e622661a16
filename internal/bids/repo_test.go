package bids

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

func seedBid(t *testing.T, repo Repository, orderID, writerID uuid.UUID, submitted time.Time) *models.Bid {
	t.Helper()
	bid := &models.Bid{
		OrderID:       orderID,
		WriterID:      writerID,
		AmountCents:   7_500,
		Currency:      enums.CurrencyUSD,
		DeliveryHours: 48,
		Status:        enums.BidStatusPending,
		SubmittedAt:   submitted,
	}
	require.NoError(t, repo.Create(context.Background(), bid))
	return bid
}

func TestUpdateStatusIfPendingOnlyOnce(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()
	bid := seedBid(t, repo, uuid.New(), uuid.New(), time.Now().UTC())

	changed, err := repo.UpdateStatusIfPending(ctx, bid.ID, StatusUpdate{Status: enums.BidStatusAccepted, DecidedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateStatusIfPending(ctx, bid.ID, StatusUpdate{Status: enums.BidStatusWithdrawn, DecidedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.Find(ctx, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BidStatusAccepted, got.Status)
	assert.NotNil(t, got.DecidedAt)
}

func TestRejectPendingExceptKeepsWinner(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()
	orderID := uuid.New()
	base := time.Now().UTC()

	winner := seedBid(t, repo, orderID, uuid.New(), base)
	loserA := seedBid(t, repo, orderID, uuid.New(), base.Add(time.Second))
	loserB := seedBid(t, repo, orderID, uuid.New(), base.Add(2*time.Second))
	other := seedBid(t, repo, uuid.New(), uuid.New(), base)

	rejected, err := repo.RejectPendingExcept(ctx, orderID, &winner.ID, "order assigned", base)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{loserA.ID, loserB.ID}, rejected)

	pending, err := repo.ListPendingByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, winner.ID, pending[0].ID)

	gotLoser, err := repo.Find(ctx, loserA.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BidStatusRejected, gotLoser.Status)
	require.NotNil(t, gotLoser.RejectionReason)
	assert.Equal(t, "order assigned", *gotLoser.RejectionReason)

	gotOther, err := repo.Find(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BidStatusPending, gotOther.Status)

	none, err := repo.RejectPendingExcept(ctx, uuid.New(), nil, "canceled", base)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHasActiveBidIgnoresWithdrawn(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()
	orderID, writerID := uuid.New(), uuid.New()

	has, err := repo.HasActiveBid(ctx, orderID, writerID)
	require.NoError(t, err)
	assert.False(t, has)

	bid := seedBid(t, repo, orderID, writerID, time.Now().UTC())
	has, err = repo.HasActiveBid(ctx, orderID, writerID)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = repo.UpdateStatusIfPending(ctx, bid.ID, StatusUpdate{Status: enums.BidStatusWithdrawn, DecidedAt: time.Now().UTC()})
	require.NoError(t, err)
	has, err = repo.HasActiveBid(ctx, orderID, writerID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestOneAcceptedBidPerOrderIndex(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()
	orderID := uuid.New()

	first := seedBid(t, repo, orderID, uuid.New(), time.Now().UTC())
	second := seedBid(t, repo, orderID, uuid.New(), time.Now().UTC())

	_, err := repo.UpdateStatusIfPending(ctx, first.ID, StatusUpdate{Status: enums.BidStatusAccepted, DecidedAt: time.Now().UTC()})
	require.NoError(t, err)
	_, err = repo.UpdateStatusIfPending(ctx, second.ID, StatusUpdate{Status: enums.BidStatusAccepted, DecidedAt: time.Now().UTC()})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestOneActiveBidPerWriterIndex(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()
	orderID, writerID := uuid.New(), uuid.New()

	first := seedBid(t, repo, orderID, writerID, time.Now().UTC())
	err := repo.Create(ctx, &models.Bid{
		OrderID:       orderID,
		WriterID:      writerID,
		AmountCents:   8_000,
		Currency:      enums.CurrencyUSD,
		DeliveryHours: 24,
		Status:        enums.BidStatusPending,
		SubmittedAt:   time.Now().UTC(),
	})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))

	_, err = repo.UpdateStatusIfPending(ctx, first.ID, StatusUpdate{Status: enums.BidStatusWithdrawn, DecidedAt: time.Now().UTC()})
	require.NoError(t, err)
	seedBid(t, repo, orderID, writerID, time.Now().UTC())
}

func TestListByWriterFiltersStatus(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()
	writerID := uuid.New()

	a := seedBid(t, repo, uuid.New(), writerID, time.Now().UTC())
	seedBid(t, repo, uuid.New(), writerID, time.Now().UTC())
	_, err := repo.UpdateStatusIfPending(ctx, a.ID, StatusUpdate{Status: enums.BidStatusRejected, DecidedAt: time.Now().UTC()})
	require.NoError(t, err)

	all, err := repo.ListByWriter(ctx, writerID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	rejected := enums.BidStatusRejected
	filtered, err := repo.ListByWriter(ctx, writerID, &rejected)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, a.ID, filtered[0].ID)
}
