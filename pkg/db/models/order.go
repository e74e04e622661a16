package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

// Order is a customer's writing job. WriterID is set exactly when the order has left AVAILABLE.
type Order struct {
	ID                  uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber         string                   `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID          uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	WriterID            *uuid.UUID               `gorm:"column:writer_id;type:uuid;index"`
	SalesAgentID        *uuid.UUID               `gorm:"column:sales_agent_id;type:uuid"`
	ManagerID           *uuid.UUID               `gorm:"column:manager_id;type:uuid"`
	EditorID            *uuid.UUID               `gorm:"column:editor_id;type:uuid"`
	WinningBidID        *uuid.UUID               `gorm:"column:winning_bid_id;type:uuid"`
	Title               string                   `gorm:"column:title;not null"`
	Description         *string                  `gorm:"column:description"`
	Type                string                   `gorm:"column:type;not null;default:'essay'"`
	EducationLevel      *string                  `gorm:"column:education_level"`
	Subject             string                   `gorm:"column:subject;not null"`
	Pages               int                      `gorm:"column:pages;not null;default:0"`
	Words               int                      `gorm:"column:words;not null;default:0"`
	SourcesRequired     int                      `gorm:"column:sources_required;not null;default:0"`
	CitationStyle       *string                  `gorm:"column:citation_style"`
	Language            string                   `gorm:"column:language;not null;default:'en'"`
	Spacing             string                   `gorm:"column:spacing;not null;default:'double'"`
	Deadline            time.Time                `gorm:"column:deadline;not null"`
	DeliveryHours       int                      `gorm:"column:delivery_hours;not null;default:0"`
	TotalCents          int64                    `gorm:"column:total_cents;not null"`
	AmountPaidCents     int64                    `gorm:"column:amount_paid_cents;not null;default:0"`
	Currency            enums.Currency           `gorm:"column:currency;type:text;not null;default:'USD'"`
	TotalBids           int                      `gorm:"column:total_bids;not null;default:0"`
	Status              enums.OrderStatus        `gorm:"column:status;type:text;not null;default:'AVAILABLE';index"`
	PaymentStatus       enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'NOT_PAID'"`
	CustomerIsReturning bool                     `gorm:"column:customer_is_returning;not null;default:false"`
	Settled             bool                     `gorm:"column:settled;not null;default:false"`
	RevisionCount       int                      `gorm:"column:revision_count;not null;default:0"`
	DisputeReason       *string                  `gorm:"column:dispute_reason"`
	SettledAt           *time.Time               `gorm:"column:settled_at"`
	StartedAt           *time.Time               `gorm:"column:started_at"`
	SubmittedAt         *time.Time               `gorm:"column:submitted_at"`
	CompletedAt         *time.Time               `gorm:"column:completed_at"`
	CanceledAt          *time.Time               `gorm:"column:canceled_at"`
	DisputedAt          *time.Time               `gorm:"column:disputed_at"`
	CreatedAt           time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// Bid is a writer's offer on an AVAILABLE order.
type Bid struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index;index:bids_one_accepted_per_order,unique,where:status = 'ACCEPTED';index:bids_one_active_per_writer,unique,priority:1,where:status <> 'WITHDRAWN'"`
	WriterID        uuid.UUID       `gorm:"column:writer_id;type:uuid;not null;index;index:bids_one_active_per_writer,unique,priority:2,where:status <> 'WITHDRAWN'"`
	AmountCents     int64           `gorm:"column:amount_cents;not null"`
	Currency        enums.Currency  `gorm:"column:currency;type:text;not null;default:'USD'"`
	DeliveryHours   int             `gorm:"column:delivery_hours;not null"`
	Proposal        *string         `gorm:"column:proposal"`
	Status          enums.BidStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	RejectionReason *string         `gorm:"column:rejection_reason"`
	SubmittedAt     time.Time       `gorm:"column:submitted_at;not null"`
	DecidedAt       *time.Time      `gorm:"column:decided_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderFile is an opaque reference to a stored file attached to an order.
type OrderFile struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	UploaderID uuid.UUID           `gorm:"column:uploader_id;type:uuid;not null"`
	Kind       enums.OrderFileKind `gorm:"column:kind;type:text;not null"`
	Reference  string              `gorm:"column:reference;not null"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}
