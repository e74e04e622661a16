package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/redis"
)

var (
	ErrConsumerRequired = errors.New("consumer name is required")
	ErrEventIDRequired  = errors.New("event id is required")
)

// Deduper remembers which event ids a consumer has taken on. The marker lives at
// ap:idempotency:seen:<consumer>:<event_id> and holds the claim time.
type Deduper struct {
	store    redis.IdempotencyStore
	ttl      time.Duration
	consumer string
	now      func() time.Time
}

func NewDeduper(store redis.IdempotencyStore, ttl time.Duration, consumer string) (*Deduper, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return nil, ErrConsumerRequired
	}
	return &Deduper{
		store:    store,
		ttl:      ttl,
		consumer: consumer,
		now:      time.Now,
	}, nil
}

func (d *Deduper) Consumer() string { return d.consumer }

// Claim reports whether this caller is the first to see eventID. Ids are opaque, so
// gateway ids like Stripe's evt_ ones work as well as uuids.
func (d *Deduper) Claim(ctx context.Context, eventID string) (bool, error) {
	key, err := d.key(eventID)
	if err != nil {
		return false, err
	}
	return d.store.SetNX(ctx, key, d.now().UTC().Format(time.RFC3339), d.ttl)
}

// Release forgets eventID so the next delivery is handled again.
func (d *Deduper) Release(ctx context.Context, eventID string) error {
	key, err := d.key(eventID)
	if err != nil {
		return err
	}
	return d.store.Del(ctx, key)
}

// ClaimedAt returns when eventID was claimed, or ok=false when no marker exists.
func (d *Deduper) ClaimedAt(ctx context.Context, eventID string) (time.Time, bool, error) {
	key, err := d.key(eventID)
	if err != nil {
		return time.Time{}, false, err
	}
	raw, err := d.store.Get(ctx, key)
	if err != nil {
		if redis.IsMiss(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, true, nil
	}
	return at, true, nil
}

func (d *Deduper) key(eventID string) (string, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", ErrEventIDRequired
	}
	return d.store.IdempotencyKey("seen:"+d.consumer, eventID), nil
}
