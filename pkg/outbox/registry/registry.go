// Package registry decodes outbox rows into typed payloads and routes them to a topic.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/config"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox/payloads"
)

// maxEnvelopeVersion is the newest envelope layout this binary understands.
const maxEnvelopeVersion = 1

// EventDescriptor links an event type to its aggregate, topic and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a decoded outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.Envelope
	Payload    any
}

// NonRetryableError marks a row that can never be published as stored.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func undeliverable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

func payloadOf[T any]() any { return new(T) }

// catalog is every event the marketplace emits, keyed by the aggregate that owns it.
var catalog = []EventDescriptor{
	{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, PayloadFactory: payloadOf[payloads.OrderCreatedEvent]},
	{EventType: enums.EventOrderStatusChanged, AggregateType: enums.AggregateOrder, PayloadFactory: payloadOf[payloads.OrderStatusChangedEvent]},
	{EventType: enums.EventWriterAssigned, AggregateType: enums.AggregateOrder, PayloadFactory: payloadOf[payloads.WriterAssignedEvent]},
	{EventType: enums.EventOrderSettled, AggregateType: enums.AggregateOrder, PayloadFactory: payloadOf[payloads.OrderSettledEvent]},
	{EventType: enums.EventBidSubmitted, AggregateType: enums.AggregateBid, PayloadFactory: payloadOf[payloads.BidEvent]},
	{EventType: enums.EventBidAccepted, AggregateType: enums.AggregateBid, PayloadFactory: payloadOf[payloads.BidAcceptedEvent]},
	{EventType: enums.EventBidRejected, AggregateType: enums.AggregateBid, PayloadFactory: payloadOf[payloads.BidEvent]},
	{EventType: enums.EventBidWithdrawn, AggregateType: enums.AggregateBid, PayloadFactory: payloadOf[payloads.BidEvent]},
	{EventType: enums.EventDepositConfirmed, AggregateType: enums.AggregatePayment, PayloadFactory: payloadOf[payloads.DepositEvent]},
	{EventType: enums.EventDepositFailed, AggregateType: enums.AggregatePayment, PayloadFactory: payloadOf[payloads.DepositEvent]},
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes every catalog event to the configured domain topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.DomainTopic)
	if topic == "" {
		return nil, errors.New("domain topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(catalog))}
	for _, desc := range catalog {
		desc.Topic = topic
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Resolve validates the row against its descriptor and decodes the typed payload. Every
// failure is non-retryable because the stored row will not change between attempts.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, undeliverable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, undeliverable("%s belongs to %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, undeliverable("%s row has no aggregate_id", event.EventType)
	}

	var env outbox.Envelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, undeliverable("decode envelope: %v", err)
	}
	if env.Version > maxEnvelopeVersion {
		return nil, undeliverable("envelope version %d is newer than %d", env.Version, maxEnvelopeVersion)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, undeliverable("%s envelope carries no data", event.EventType)
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, undeliverable("decode %s payload: %v", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
