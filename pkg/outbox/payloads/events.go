package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

// OrderCreatedEvent announces a new order open for bidding.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID      `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	CustomerID  uuid.UUID      `json:"customer_id"`
	TotalCents  int64          `json:"total_cents"`
	Currency    enums.Currency `json:"currency"`
	Deadline    time.Time      `json:"deadline"`
	Paid        bool           `json:"paid"`
}

// OrderStatusChangedEvent records one lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	From     enums.OrderStatus `json:"from"`
	To       enums.OrderStatus `json:"to"`
	Reason   string            `json:"reason,omitempty"`
	WriterID *uuid.UUID        `json:"writer_id,omitempty"`
}

// WriterAssignedEvent is emitted when an admin assigns or reassigns a writer.
type WriterAssignedEvent struct {
	OrderID          uuid.UUID  `json:"order_id"`
	WriterID         uuid.UUID  `json:"writer_id"`
	PreviousWriterID *uuid.UUID `json:"previous_writer_id,omitempty"`
	RejectedBidCount int        `json:"rejected_bid_count"`
}

// SettlementLine is one credited share of a settled order.
type SettlementLine struct {
	AccountID   uuid.UUID             `json:"account_id"`
	Type        enums.LedgerEntryType `json:"type"`
	AmountCents int64                 `json:"amount_cents"`
}

// OrderSettledEvent lists the earnings released for a completed order.
type OrderSettledEvent struct {
	OrderID      uuid.UUID        `json:"order_id"`
	TotalCents   int64            `json:"total_cents"`
	DefaultSplit bool             `json:"default_split"`
	Lines        []SettlementLine `json:"lines"`
}

// BidEvent describes a bid lifecycle change.
type BidEvent struct {
	BidID       uuid.UUID       `json:"bid_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	WriterID    uuid.UUID       `json:"writer_id"`
	Status      enums.BidStatus `json:"status"`
	AmountCents int64           `json:"amount_cents"`
	Reason      string          `json:"reason,omitempty"`
}

// BidAcceptedEvent carries the winning bid and the bids it displaced.
type BidAcceptedEvent struct {
	BidEvent
	RejectedBidIDs []uuid.UUID `json:"rejected_bid_ids"`
}

// DepositEvent reports the outcome of a gateway deposit.
type DepositEvent struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	AmountCents   int64               `json:"amount_cents"`
	ExternalRef   string              `json:"external_ref"`
	Status        enums.PaymentStatus `json:"status"`
	FailureReason string              `json:"failure_reason,omitempty"`
}
