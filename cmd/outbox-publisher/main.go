package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/config"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/migrate"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox/registry"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	requeue := flag.String("requeue", "", "event id to move out of the dead letter table, then exit")
	listParked := flag.Bool("parked", false, "log the most recent dead letters, then exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if *requeue != "" || *listParked {
		if err := deadLetters(cfg, logg, *requeue); err != nil {
			logg.Error(context.Background(), "dead letter command failed", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "outbox publisher shut down gracefully")
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-publisher",
		"topic":       cfg.PubSub.DomainTopic,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, pubsubClient.Close())
	}()

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		PubSub:   pubsubClient,
		Store:    outbox.NewRepository(dbClient.DB()),
		Registry: eventRegistry,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}

// deadLetters requeues one parked event when eventID is set, otherwise it logs the most
// recent dead letters so an operator can pick one.
func deadLetters(cfg *config.Config, logg *logger.Logger, eventID string) (err error) {
	ctx := context.Background()
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()
	repo := outbox.NewRepository(dbClient.DB())

	if eventID == "" {
		letters, err := repo.ListParked(ctx, 0)
		if err != nil {
			return err
		}
		for _, letter := range letters {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"event_id":     letter.EventID.String(),
				"event_type":   letter.EventType,
				"aggregate_id": letter.AggregateID.String(),
				"reason":       letter.Reason,
				"error":        letter.ErrorMessage,
				"failed_at":    letter.FailedAt,
			}), "parked outbox event")
		}
		return nil
	}

	id, err := uuid.Parse(eventID)
	if err != nil {
		return err
	}
	requeued, err := repo.Requeue(ctx, id)
	if err != nil {
		return err
	}
	ctx = logg.WithField(ctx, "event_id", id.String())
	if !requeued {
		logg.Warn(ctx, "event is not parked, nothing to requeue")
		return nil
	}
	logg.Info(ctx, "event requeued for publishing")
	return nil
}
