package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/dbtest"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox/payloads"
)

func TestEmitStoresEnvelopeInTransaction(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	ctx := context.Background()
	orderID := uuid.New()
	actor := &outbox.ActorRef{UserID: uuid.New(), Role: string(enums.RoleCustomer)}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         actor,
			Data:          payloads.OrderCreatedEvent{OrderID: orderID, TotalCents: 4000, Currency: enums.CurrencyUSD},
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListByAggregate(nil, enums.AggregateOrder, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var envelope outbox.Envelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.Equal(t, actor.UserID, envelope.Actor.UserID)

	var data payloads.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Equal(t, int64(4000), data.TotalCents)
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, nil)
	ctx := context.Background()
	bidID := uuid.New()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidSubmitted,
			AggregateType: enums.AggregateBid,
			AggregateID:   bidID,
			Data:          payloads.BidEvent{BidID: bidID},
		}); err != nil {
			return err
		}
		return errors.New("bid insert failed")
	})
	require.Error(t, err)

	rows, err := repo.ListByAggregate(nil, enums.AggregateBid, bidID)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestEmitRejectsUnknownTypeAndMissingTx(t *testing.T) {
	svc := outbox.NewService(outbox.NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, outbox.DomainEvent{EventType: enums.EventOrderCreated})
	require.Error(t, err)

	client := dbtest.Open(t)
	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{EventType: "order_teleported"})
	})
	require.Error(t, err)
}

func TestEmitRejectsMissingAggregate(t *testing.T) {
	client := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
		})
	})
	require.ErrorContains(t, err, "no aggregate id")
}

func emitDeposits(t *testing.T, client *db.Client, svc *outbox.Service, n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		for i := 0; i < n; i++ {
			id := uuid.New()
			if err := svc.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventDepositConfirmed,
				AggregateType: enums.AggregatePayment,
				AggregateID:   id,
				Data:          payloads.DepositEvent{PaymentID: id},
			}); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestPublishBookkeeping(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	ctx := context.Background()
	emitDeposits(t, client, outbox.NewService(repo, nil), 3)

	longErr := errors.New(strings.Repeat("x", 5000))
	var claimed []models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if claimed, err = repo.Claim(tx, 10, 3); err != nil {
			return err
		}
		if err := repo.MarkPublished(tx, claimed[0].ID, time.Now().UTC()); err != nil {
			return err
		}
		if err := repo.RecordFailure(tx, claimed[1].ID, errors.New("timeout")); err != nil {
			return err
		}
		return repo.Park(tx, claimed[2], enums.DeadLetterUndeliverable, longErr, 3)
	}))
	require.Len(t, claimed, 3)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		next, err := repo.Claim(tx, 10, 3)
		require.Len(t, next, 1)
		require.Equal(t, claimed[1].ID, next[0].ID)
		require.Equal(t, 1, next[0].AttemptCount)
		require.Equal(t, "timeout", *next[0].LastError)
		return err
	}))

	parked, err := repo.Parked(ctx, claimed[2].ID)
	require.NoError(t, err)
	require.NotNil(t, parked)
	require.Len(t, parked.ErrorMessage, 1024)
	require.Equal(t, enums.DeadLetterUndeliverable, parked.Reason)
	require.JSONEq(t, string(claimed[2].Payload), string(parked.Payload))

	missing, err := repo.Parked(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRequeueRearmsParkedEvent(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	ctx := context.Background()
	emitDeposits(t, client, outbox.NewService(repo, nil), 1)

	var parkedID uuid.UUID
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.Claim(tx, 1, 5)
		if err != nil {
			return err
		}
		parkedID = rows[0].ID
		return repo.Park(tx, rows[0], enums.DeadLetterMaxAttempts, errors.New("unavailable"), 5)
	}))

	letters, err := repo.ListParked(ctx, 0)
	require.NoError(t, err)
	require.Len(t, letters, 1)

	ok, err := repo.Requeue(ctx, parkedID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Requeue(ctx, parkedID)
	require.NoError(t, err)
	require.False(t, ok, "second requeue has nothing to do")

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.Claim(tx, 10, 5)
		require.Len(t, rows, 1)
		require.Equal(t, parkedID, rows[0].ID)
		require.Zero(t, rows[0].AttemptCount)
		require.Nil(t, rows[0].LastError)
		return err
	}))
}

func TestAttributesDescribeRow(t *testing.T) {
	row := models.OutboxEvent{
		EventType:     enums.EventBidAccepted,
		AggregateType: enums.AggregateBid,
		AggregateID:   uuid.New(),
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	attrs := outbox.Attributes(row, outbox.Envelope{
		EventID: "evt-1",
		Actor:   &outbox.ActorRef{UserID: uuid.New(), Role: string(enums.RoleCustomer)},
	})
	require.Equal(t, "evt-1", attrs["event_id"])
	require.Equal(t, string(enums.EventBidAccepted), attrs["event_type"])
	require.Equal(t, row.AggregateID.String(), attrs["aggregate_id"])
	require.Equal(t, "2026-03-01T12:00:00Z", attrs["created_at"])
	require.Equal(t, string(enums.RoleCustomer), attrs["actor_role"])

	_, hasRole := outbox.Attributes(row, outbox.Envelope{})["actor_role"]
	require.False(t, hasRole)
}
