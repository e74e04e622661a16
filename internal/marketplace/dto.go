package marketplace

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

// SubmitBidInput is a writer's offer. Nil amount or delivery hours fall back to policy.
type SubmitBidInput struct {
	OrderID       uuid.UUID
	WriterID      uuid.UUID
	AmountCents   *int64
	DeliveryHours *int
	Proposal      string
}

// DecideBidInput identifies a bid and the actor acting on it.
type DecideBidInput struct {
	BidID       uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.Role
	Reason      string
}

// ListOrderBidsInput lists the bids on an order as seen by the actor.
type ListOrderBidsInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

// AcceptResult is the winning bid together with the order it now drives.
type AcceptResult struct {
	Bid            models.Bid   `json:"bid"`
	Order          models.Order `json:"order"`
	RejectedBidIDs []uuid.UUID  `json:"rejected_bid_ids"`
}
