package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateBid     OutboxAggregateType = "bid"
	AggregatePayment OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateBid,
	AggregatePayment,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event published through the outbox.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventWriterAssigned     OutboxEventType = "writer_assigned"
	EventOrderSettled       OutboxEventType = "order_settled"
	EventBidSubmitted       OutboxEventType = "bid_submitted"
	EventBidAccepted        OutboxEventType = "bid_accepted"
	EventBidRejected        OutboxEventType = "bid_rejected"
	EventBidWithdrawn       OutboxEventType = "bid_withdrawn"
	EventDepositConfirmed   OutboxEventType = "deposit_confirmed"
	EventDepositFailed      OutboxEventType = "deposit_failed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventWriterAssigned,
	EventOrderSettled,
	EventBidSubmitted,
	EventBidAccepted,
	EventBidRejected,
	EventBidWithdrawn,
	EventDepositConfirmed,
	EventDepositFailed,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// DeadLetterReason explains why the publisher stopped retrying an event.
type DeadLetterReason string

const (
	// DeadLetterMaxAttempts means every publish attempt failed transiently.
	DeadLetterMaxAttempts DeadLetterReason = "max_attempts"
	// DeadLetterUndeliverable means the row can never be published as stored.
	DeadLetterUndeliverable DeadLetterReason = "non_retryable"
)
