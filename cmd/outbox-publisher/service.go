package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/config"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(topic string) *gcppubsub.Publisher
}

type outboxStore interface {
	Claim(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID, at time.Time) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	Park(tx *gorm.DB, event models.OutboxEvent, reason enums.DeadLetterReason, cause error, ceiling int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Store            outboxStore
	Registry         registryResolver
	PublisherFactory publisherFactory
}

// Service drains outbox_events onto the domain topic.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	pubsub       pubSubClient
	store        outboxStore
	registry     registryResolver
	publisherFor publisherFactory
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

// outcome is what happened to one row in a batch.
type outcome int

const (
	published outcome = iota
	retrying
	parked
)

type batchStats struct {
	published, retrying, parked int
}

func (b *batchStats) add(o outcome) {
	switch o {
	case published:
		b.published++
	case retrying:
		b.retrying++
	case parked:
		b.parked++
	}
}

func (b batchStats) total() int { return b.published + b.retrying + b.parked }

func NewService(params ServiceParams) (*Service, error) {
	for _, dep := range []struct {
		name    string
		missing bool
	}{
		{"config", params.Config == nil},
		{"logger", params.Logger == nil},
		{"database client", params.DB == nil},
		{"pubsub client", params.PubSub == nil},
		{"outbox store", params.Store == nil},
		{"event registry", params.Registry == nil},
	} {
		if dep.missing {
			return nil, fmt.Errorf("%s is required", dep.name)
		}
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = gcpPublisherFactory(params.PubSub)
	}

	cfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		store:        params.Store,
		registry:     params.Registry,
		publisherFor: factory,
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

// Run polls until ctx is canceled. A full batch is followed immediately by the next one;
// an idle poll waits pollInterval and a failed batch backs off exponentially.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	backoff := time.Duration(0)
	for {
		stats, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = backoff
			s.logg.Error(s.logg.WithField(ctx, "retry_in_ms", wait.Milliseconds()), "outbox batch failed", err)
		case stats.total() > 0:
			backoff = 0
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"published": stats.published,
				"retrying":  stats.retrying,
				"parked":    stats.parked,
			}), "outbox batch drained")
			if stats.total() == s.batchSize {
				continue
			}
			wait = s.pollInterval
		default:
			backoff = 0
			wait = s.pollInterval
		}

		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

// processBatch claims one batch and settles every row inside the claiming transaction so
// the row locks are held until each outcome is recorded.
func (s *Service) processBatch(ctx context.Context) (batchStats, error) {
	var stats batchStats
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stats = batchStats{}
		events, err := s.store.Claim(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		for _, event := range events {
			result, err := s.dispatch(ctx, tx, event)
			if err != nil {
				return err
			}
			stats.add(result)
		}
		return nil
	})
	return stats, err
}

// dispatch publishes one row and records the outcome. Only bookkeeping failures are
// returned; publish failures are stored on the row so the rest of the batch proceeds.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	})

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.park(logCtx, tx, event, enums.DeadLetterUndeliverable, err)
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id": resolved.Envelope.EventID,
		"topic":    resolved.Descriptor.Topic,
	})

	pubErr := s.publish(ctx, event, resolved)
	switch {
	case pubErr == nil:
		if err := s.store.MarkPublished(tx, event.ID, time.Now().UTC()); err != nil {
			return published, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Debug(logCtx, "outbox event published")
		return published, nil
	case errors.As(pubErr, new(registry.NonRetryableError)):
		return s.park(logCtx, tx, event, enums.DeadLetterUndeliverable, pubErr)
	case event.AttemptCount+1 >= s.maxAttempts:
		return s.park(logCtx, tx, event, enums.DeadLetterMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, pubErr))
	}

	s.logg.Warn(s.logg.WithField(logCtx, "error", pubErr.Error()), "outbox publish failed, will retry")
	if err := s.store.RecordFailure(tx, event.ID, pubErr); err != nil {
		return retrying, fmt.Errorf("record failure %s: %w", event.ID, err)
	}
	return retrying, nil
}

func (s *Service) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.DeadLetterReason, cause error) (outcome, error) {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox event parked in dead letter table")
	if err := s.store.Park(tx, event, reason, cause, s.maxAttempts); err != nil {
		return parked, fmt.Errorf("park %s: %w", event.ID, err)
	}
	return parked, nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFor(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data:        event.Payload,
		Attributes:  outbox.Attributes(event, resolved.Envelope),
		OrderingKey: event.AggregateID.String(),
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned no result for topic %s", topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		// A failed ordered publish pauses its key until resumed; the retry goes through the
		// next batch.
		pub.ResumePublish(msg.OrderingKey)
		return err
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, limit)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
