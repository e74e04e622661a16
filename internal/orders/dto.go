package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

// CreateOrderInput carries a customer's new order. TotalCents is the customer price.
type CreateOrderInput struct {
	CustomerID      uuid.UUID
	Title           string
	Description     string
	Type            string
	EducationLevel  string
	Subject         string
	Pages           int
	Words           int
	SourcesRequired int
	CitationStyle   string
	Language        string
	Spacing         string
	Deadline        time.Time
	DeliveryHours   int
	TotalCents      int64
	Currency        enums.Currency
	PayFromWallet   bool
}

// TransitionInput requests a lifecycle move on behalf of an actor.
type TransitionInput struct {
	OrderID     uuid.UUID
	To          enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   enums.Role
	Reason      string
}

// AssignInput is an admin override that puts a writer on an order.
type AssignInput struct {
	OrderID     uuid.UUID
	WriterID    uuid.UUID
	EditorID    *uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

// AttachFileInput stores an opaque file reference against an order.
type AttachFileInput struct {
	OrderID      uuid.UUID
	UploaderID   uuid.UUID
	UploaderRole enums.Role
	Kind         enums.OrderFileKind
	Reference    string
}

// OrderList is one page of orders, newest first.
type OrderList struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}
