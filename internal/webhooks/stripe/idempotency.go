package stripewebhook

import (
	"context"
	"time"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/redis"
)

// IdempotencyGuard dedupes Stripe deliveries by event id for one consumer.
type IdempotencyGuard struct {
	deduper *idempotency.Deduper
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, consumer string) (*IdempotencyGuard, error) {
	deduper, err := idempotency.NewDeduper(store, ttl, consumer)
	if err != nil {
		return nil, err
	}
	return &IdempotencyGuard{deduper: deduper}, nil
}

// CheckAndMark reports whether eventID was already seen, marking it otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	first, err := g.deduper.Claim(ctx, eventID)
	if err != nil {
		return false, err
	}
	return !first, nil
}

// Delete releases the marker so Stripe's retry is processed again.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	return g.deduper.Release(ctx, eventID)
}
