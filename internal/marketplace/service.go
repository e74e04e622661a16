package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/assignmentpoint-backend/internal/bids"
	"github.com/angelmondragon/assignmentpoint-backend/internal/orders"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/config"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/money"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox/payloads"
)

const (
	reasonOtherAccepted = "another bid was accepted"
	reasonCustomer      = "declined by customer"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// WriterLookup resolves writer profiles inside a transaction.
type WriterLookup interface {
	FindWriterTx(ctx context.Context, tx *gorm.DB, writerID uuid.UUID) (*models.Writer, error)
}

type bidMetrics interface {
	IncBidSubmitted()
	IncBidAccepted()
	IncBidConflict(operation string)
	IncOrderTransition(from, to string)
}

// Policy prices bids that omit an amount or delivery time.
type Policy struct {
	DefaultBidPercent    int64
	DefaultDeliveryHours int
}

// PolicyFromConfig copies the bidding knobs out of the marketplace config.
func PolicyFromConfig(cfg config.MarketplaceConfig) Policy {
	return Policy{DefaultBidPercent: cfg.DefaultBidPercent, DefaultDeliveryHours: cfg.DefaultDeliveryHours}
}

// Service runs the bidding workflow on AVAILABLE orders.
type Service interface {
	SubmitBid(ctx context.Context, input SubmitBidInput) (*models.Bid, error)
	AcceptBid(ctx context.Context, input DecideBidInput) (*AcceptResult, error)
	RejectBid(ctx context.Context, input DecideBidInput) (*models.Bid, error)
	WithdrawBid(ctx context.Context, input DecideBidInput) (*models.Bid, error)
	ListBidsForOrder(ctx context.Context, input ListOrderBidsInput) ([]models.Bid, error)
	ListBidsForWriter(ctx context.Context, writerID uuid.UUID, status *enums.BidStatus) ([]models.Bid, error)
}

// Deps groups the collaborators of the marketplace engine.
type Deps struct {
	Orders  orders.Repository
	Bids    bids.Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Writers WriterLookup
	Policy  Policy
	Logger  *logger.Logger
	Metrics bidMetrics
}

type service struct {
	orders  orders.Repository
	bids    bids.Repository
	tx      txRunner
	outbox  outboxPublisher
	writers WriterLookup
	policy  Policy
	logg    *logger.Logger
	metrics bidMetrics
	now     func() time.Time
}

// NewService wires the marketplace engine.
func NewService(deps Deps) (Service, error) {
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Bids == nil {
		return nil, fmt.Errorf("bids repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deps.Writers == nil {
		return nil, fmt.Errorf("writer lookup required")
	}
	policy := deps.Policy
	if policy.DefaultBidPercent <= 0 || policy.DefaultBidPercent > 100 {
		return nil, fmt.Errorf("default bid percent must be within (0, 100], got %d", policy.DefaultBidPercent)
	}
	if policy.DefaultDeliveryHours <= 0 {
		return nil, fmt.Errorf("default delivery hours must be positive")
	}
	return &service{
		orders:  deps.Orders,
		bids:    deps.Bids,
		tx:      deps.Tx,
		outbox:  deps.Outbox,
		writers: deps.Writers,
		policy:  policy,
		logg:    deps.Logger,
		metrics: deps.Metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// SubmitBid records a PENDING bid and bumps the order's bid counter in one transaction.
func (s *service) SubmitBid(ctx context.Context, input SubmitBidInput) (*models.Bid, error) {
	if input.OrderID == uuid.Nil || input.WriterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and writer id required")
	}
	if input.AmountCents != nil && *input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive")
	}
	if input.DeliveryHours != nil && *input.DeliveryHours <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery hours must be positive")
	}

	var bid *models.Bid
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusAvailable {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s, bidding is closed", order.Status).
				WithDetails(map[string]any{"status": order.Status})
		}
		if _, err := s.writers.FindWriterTx(ctx, tx, input.WriterID); err != nil {
			return err
		}

		bidRepo := s.bids.WithTx(tx)
		active, err := bidRepo.HasActiveBid(ctx, order.ID, input.WriterID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing bids")
		}
		if active {
			return duplicateBid(order.ID, input.WriterID)
		}

		now := s.now()
		bid = &models.Bid{
			ID:            uuid.New(),
			OrderID:       order.ID,
			WriterID:      input.WriterID,
			AmountCents:   s.bidAmount(order, input.AmountCents),
			Currency:      order.Currency,
			DeliveryHours: s.deliveryHours(order, input.DeliveryHours),
			Proposal:      optionalString(input.Proposal),
			Status:        enums.BidStatusPending,
			SubmittedAt:   now,
		}
		if err := bidRepo.Create(ctx, bid); err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateBid(order.ID, input.WriterID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bid")
		}
		if err := s.orders.WithTx(tx).AdjustBidCount(ctx, order.ID, 1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count bid")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidSubmitted,
			AggregateType: enums.AggregateBid,
			AggregateID:   bid.ID,
			Actor:         &outbox.ActorRef{UserID: input.WriterID, Role: string(enums.RoleWriter)},
			Data:          bidEvent(bid, ""),
		})
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeDuplicateBid) || pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			s.conflict("submit")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncBidSubmitted()
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, bid.OrderID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"bid_id":    bid.ID.String(),
			"writer_id": bid.WriterID.String(),
			"amount":    money.Format(bid.AmountCents),
		})
		s.logg.Info(logCtx, "bid submitted")
	}
	return bid, nil
}

func (s *service) bidAmount(order *models.Order, requested *int64) int64 {
	if requested != nil {
		return *requested
	}
	return money.Percent(order.TotalCents, decimal.NewFromInt(s.policy.DefaultBidPercent))
}

func (s *service) deliveryHours(order *models.Order, requested *int) int {
	if requested != nil {
		return *requested
	}
	if order.DeliveryHours > 0 {
		return order.DeliveryHours
	}
	return s.policy.DefaultDeliveryHours
}

// AcceptBid awards the order to the bid's writer. The order row is locked before the bid is
// re-read, so concurrent accepts on one order serialize and all but one see a conflict.
func (s *service) AcceptBid(ctx context.Context, input DecideBidInput) (*AcceptResult, error) {
	if err := validateDecision(input); err != nil {
		return nil, err
	}

	var result *AcceptResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, bid, err := s.lockBidAndOrder(ctx, tx, input.BidID)
		if err != nil {
			return err
		}
		if err := authorizeDecision(order, input); err != nil {
			return err
		}
		if bid.Status != enums.BidStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "bid is %s", bid.Status).
				WithDetails(map[string]any{"bid_status": bid.Status})
		}
		if order.Status != enums.OrderStatusAvailable {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s", order.Status).
				WithDetails(map[string]any{"order_status": order.Status})
		}

		now := s.now()
		bidRepo := s.bids.WithTx(tx)
		updated, err := bidRepo.UpdateStatusIfPending(ctx, bid.ID, bids.StatusUpdate{Status: enums.BidStatusAccepted, DecidedAt: now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept bid")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bid is no longer pending")
		}
		rejected, err := bidRepo.RejectPendingExcept(ctx, order.ID, &bid.ID, reasonOtherAccepted, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject competing bids")
		}

		writer, err := s.writers.FindWriterTx(ctx, tx, bid.WriterID)
		if err != nil {
			return err
		}
		writerID, bidID := writer.ID, bid.ID
		order.WriterID = &writerID
		order.ManagerID = writer.ManagerID
		order.WinningBidID = &bidID
		order.Status = enums.OrderStatusInProgress
		if order.StartedAt == nil {
			order.StartedAt = &now
		}
		if err := s.orders.WithTx(tx).SaveState(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign order")
		}

		bid.Status = enums.BidStatusAccepted
		bid.DecidedAt = &now
		actor := &outbox.ActorRef{UserID: input.ActorUserID, Role: string(input.ActorRole)}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidAccepted,
			AggregateType: enums.AggregateBid,
			AggregateID:   bid.ID,
			Actor:         actor,
			Data:          payloads.BidAcceptedEvent{BidEvent: bidEvent(bid, ""), RejectedBidIDs: rejected},
		}); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:  order.ID,
				From:     enums.OrderStatusAvailable,
				To:       order.Status,
				Reason:   "bid accepted",
				WriterID: order.WriterID,
			},
		}); err != nil {
			return err
		}

		result = &AcceptResult{Bid: *bid, Order: *order, RejectedBidIDs: rejected}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			s.conflict("accept")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncBidAccepted()
		s.metrics.IncOrderTransition(string(enums.OrderStatusAvailable), string(enums.OrderStatusInProgress))
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, result.Order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"bid_id":    result.Bid.ID.String(),
			"writer_id": result.Bid.WriterID.String(),
			"rejected":  len(result.RejectedBidIDs),
		})
		s.logg.Info(logCtx, "bid accepted")
	}
	return result, nil
}

// RejectBid declines one PENDING bid. The bid keeps counting toward the order's total.
func (s *service) RejectBid(ctx context.Context, input DecideBidInput) (*models.Bid, error) {
	if err := validateDecision(input); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = reasonCustomer
	}

	var bid *models.Bid
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, locked, err := s.lockBidAndOrder(ctx, tx, input.BidID)
		if err != nil {
			return err
		}
		bid = locked
		if err := authorizeDecision(order, input); err != nil {
			return err
		}
		if err := s.decide(ctx, tx, bid, enums.BidStatusRejected, &reason); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidRejected,
			AggregateType: enums.AggregateBid,
			AggregateID:   bid.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(input.ActorRole)},
			Data:          bidEvent(bid, reason),
		})
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			s.conflict("reject")
		}
		return nil, err
	}
	s.logDecision(ctx, bid, "bid rejected")
	return bid, nil
}

// WithdrawBid lets the bidding writer retract a PENDING bid and frees the order's counter.
func (s *service) WithdrawBid(ctx context.Context, input DecideBidInput) (*models.Bid, error) {
	if err := validateDecision(input); err != nil {
		return nil, err
	}

	var bid *models.Bid
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, locked, err := s.lockBidAndOrder(ctx, tx, input.BidID)
		if err != nil {
			return err
		}
		bid = locked
		if input.ActorRole != enums.RoleWriter || bid.WriterID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the bidding writer may withdraw a bid")
		}
		if err := s.decide(ctx, tx, bid, enums.BidStatusWithdrawn, nil); err != nil {
			return err
		}
		if err := s.orders.WithTx(tx).AdjustBidCount(ctx, order.ID, -1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "uncount bid")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBidWithdrawn,
			AggregateType: enums.AggregateBid,
			AggregateID:   bid.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(input.ActorRole)},
			Data:          bidEvent(bid, ""),
		})
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			s.conflict("withdraw")
		}
		return nil, err
	}
	s.logDecision(ctx, bid, "bid withdrawn")
	return bid, nil
}

// decide moves a PENDING bid to a final status with a conditional update.
func (s *service) decide(ctx context.Context, tx *gorm.DB, bid *models.Bid, status enums.BidStatus, reason *string) error {
	if bid.Status != enums.BidStatusPending {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "bid is %s", bid.Status).
			WithDetails(map[string]any{"bid_status": bid.Status})
	}
	now := s.now()
	updated, err := s.bids.WithTx(tx).UpdateStatusIfPending(ctx, bid.ID, bids.StatusUpdate{Status: status, Reason: reason, DecidedAt: now})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bid")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "bid is no longer pending")
	}
	bid.Status = status
	bid.RejectionReason = reason
	bid.DecidedAt = &now
	return nil
}

func (s *service) ListBidsForOrder(ctx context.Context, input ListOrderBidsInput) ([]models.Bid, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orders.Find(ctx, input.OrderID)
	if err != nil {
		return nil, mapOrderErr(err)
	}
	list, err := s.bids.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids")
	}

	switch input.ActorRole {
	case enums.RoleAdmin:
		return list, nil
	case enums.RoleCustomer:
		if order.CustomerID != input.ActorUserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		return list, nil
	case enums.RoleWriter:
		own := make([]models.Bid, 0, 1)
		for _, bid := range list {
			if bid.WriterID == input.ActorUserID {
				own = append(own, bid)
			}
		}
		return own, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not list bids")
}

func (s *service) ListBidsForWriter(ctx context.Context, writerID uuid.UUID, status *enums.BidStatus) ([]models.Bid, error) {
	if writerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "writer id required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid bid status %q", *status)
	}
	list, err := s.bids.ListByWriter(ctx, writerID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids")
	}
	return list, nil
}

func (s *service) lockOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.WithTx(tx).FindForUpdate(ctx, orderID)
	if err != nil {
		return nil, mapOrderErr(err)
	}
	return order, nil
}

// lockBidAndOrder resolves the bid's order, locks the order row, then re-reads the bid
// under that lock.
func (s *service) lockBidAndOrder(ctx context.Context, tx *gorm.DB, bidID uuid.UUID) (*models.Order, *models.Bid, error) {
	bidRepo := s.bids.WithTx(tx)
	peek, err := bidRepo.Find(ctx, bidID)
	if err != nil {
		return nil, nil, mapBidErr(err)
	}
	order, err := s.lockOrder(ctx, tx, peek.OrderID)
	if err != nil {
		return nil, nil, err
	}
	bid, err := bidRepo.FindForUpdate(ctx, bidID)
	if err != nil {
		return nil, nil, mapBidErr(err)
	}
	return order, bid, nil
}

func (s *service) conflict(operation string) {
	if s.metrics != nil {
		s.metrics.IncBidConflict(operation)
	}
}

func (s *service) logDecision(ctx context.Context, bid *models.Bid, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, bid.OrderID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{"bid_id": bid.ID.String(), "status": bid.Status})
	s.logg.Info(logCtx, msg)
}

func validateDecision(input DecideBidInput) error {
	if input.BidID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}

// authorizeDecision allows the order's customer or an admin to decide on its bids.
func authorizeDecision(order *models.Order, input DecideBidInput) error {
	switch input.ActorRole {
	case enums.RoleAdmin:
		return nil
	case enums.RoleCustomer:
		if order.CustomerID == input.ActorUserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the order's customer may decide on its bids")
}

func duplicateBid(orderID, writerID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeDuplicateBid, "writer already has an active bid on this order").
		WithDetails(map[string]any{"order_id": orderID, "writer_id": writerID})
}

func mapOrderErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func mapBidErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bid")
}

func bidEvent(bid *models.Bid, reason string) payloads.BidEvent {
	return payloads.BidEvent{
		BidID:       bid.ID,
		OrderID:     bid.OrderID,
		WriterID:    bid.WriterID,
		Status:      bid.Status,
		AmountCents: bid.AmountCents,
		Reason:      reason,
	}
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
