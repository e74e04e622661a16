package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assignmentpoint-backend/internal/bids"
	"github.com/angelmondragon/assignmentpoint-backend/internal/ledger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type transitionMetrics interface {
	IncOrderTransition(from, to string)
}

// Settler releases earnings for an order moving to COMPLETED, inside the caller's transaction.
type Settler interface {
	Settle(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

// ProfileStore is the slice of the profiles service the order lifecycle needs.
type ProfileStore interface {
	RecordOrderPlaced(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Customer, error)
	FindWriterTx(ctx context.Context, tx *gorm.DB, writerID uuid.UUID) (*models.Writer, error)
}

// Wallets posts order payments and refunds.
type Wallets interface {
	EnsureAccount(ctx context.Context, tx *gorm.DB, ownerType enums.AccountOwnerType, ownerID uuid.UUID, currency enums.Currency) (*models.WalletAccount, error)
	Post(ctx context.Context, tx *gorm.DB, input ledger.PostInput, direction ledger.Direction) (*ledger.PostResult, error)
}

// Service defines the order store and lifecycle operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	TransitionStatus(ctx context.Context, input TransitionInput) (*models.Order, error)
	AssignWriter(ctx context.Context, input AssignInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListForWriter(ctx context.Context, writerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAvailable(ctx context.Context, params pagination.Params) (*OrderList, error)
	ListByStatus(ctx context.Context, status enums.OrderStatus, params pagination.Params) (*OrderList, error)
	AttachFile(ctx context.Context, input AttachFileInput) (*models.OrderFile, error)
	ListFiles(ctx context.Context, orderID uuid.UUID) ([]models.OrderFile, error)
	CompletedTotals(ctx context.Context) (CompletedTotals, error)
}

// Deps groups the collaborators of the order service.
type Deps struct {
	Repo     Repository
	Bids     bids.Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Profiles ProfileStore
	Wallets  Wallets
	Settler  Settler
	Currency enums.Currency
	Logger   *logger.Logger
	Metrics  transitionMetrics
}

type service struct {
	repo     Repository
	bids     bids.Repository
	tx       txRunner
	outbox   outboxPublisher
	profiles ProfileStore
	wallets  Wallets
	settler  Settler
	currency enums.Currency
	logg     *logger.Logger
	metrics  transitionMetrics
	now      func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
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
	if deps.Profiles == nil {
		return nil, fmt.Errorf("profile store required")
	}
	if deps.Wallets == nil {
		return nil, fmt.Errorf("wallets required")
	}
	if deps.Settler == nil {
		return nil, fmt.Errorf("settler required")
	}
	currency := deps.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	return &service{
		repo:     deps.Repo,
		bids:     deps.Bids,
		tx:       deps.Tx,
		outbox:   deps.Outbox,
		profiles: deps.Profiles,
		wallets:  deps.Wallets,
		settler:  deps.Settler,
		currency: currency,
		logg:     deps.Logger,
		metrics:  deps.Metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := s.validateCreate(&input); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      input.CustomerID,
		Title:           strings.TrimSpace(input.Title),
		Description:     optionalString(input.Description),
		Type:            defaultString(input.Type, "essay"),
		EducationLevel:  optionalString(input.EducationLevel),
		Subject:         strings.TrimSpace(input.Subject),
		Pages:           input.Pages,
		Words:           input.Words,
		SourcesRequired: input.SourcesRequired,
		CitationStyle:   optionalString(input.CitationStyle),
		Language:        defaultString(input.Language, "en"),
		Spacing:         defaultString(input.Spacing, "double"),
		Deadline:        input.Deadline.UTC(),
		DeliveryHours:   input.DeliveryHours,
		TotalCents:      input.TotalCents,
		Currency:        input.Currency,
		Status:          enums.OrderStatusAvailable,
		PaymentStatus:   enums.OrderPaymentNotPaid,
	}
	order.OrderNumber = orderNumber(order.ID)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customer, err := s.profiles.RecordOrderPlaced(ctx, tx, input.CustomerID)
		if err != nil {
			return err
		}
		order.SalesAgentID = customer.SalesAgentID
		order.CustomerIsReturning = customer.IsReturning

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if input.PayFromWallet {
			if err := s.chargeWallet(ctx, tx, order); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         buildActor(input.CustomerID, enums.RoleCustomer),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				TotalCents:  order.TotalCents,
				Currency:    order.Currency,
				Deadline:    order.Deadline,
				Paid:        order.PaymentStatus == enums.OrderPaymentPaid,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"order_number": order.OrderNumber,
			"total_cents":  order.TotalCents,
			"returning":    order.CustomerIsReturning,
		})
		s.logg.Info(logCtx, "order created")
	}
	return order, nil
}

func (s *service) validateCreate(input *CreateOrderInput) error {
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject required")
	}
	if input.Deadline.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "deadline required")
	}
	if !input.Deadline.After(s.now()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "deadline must be in the future")
	}
	if input.TotalCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "total must be positive")
	}
	if input.Pages < 0 || input.Words < 0 || input.SourcesRequired < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "pages, words and sources cannot be negative")
	}
	if input.DeliveryHours < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery hours cannot be negative")
	}
	if input.Currency == "" {
		input.Currency = s.currency
	}
	if !input.Currency.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported currency %q", input.Currency)
	}
	return nil
}

// chargeWallet debits the customer for the order total. An overdraft aborts the whole
// order creation.
func (s *service) chargeWallet(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	account, err := s.wallets.EnsureAccount(ctx, tx, enums.AccountOwnerCustomer, order.CustomerID, order.Currency)
	if err != nil {
		return err
	}
	orderID := order.ID
	if _, err := s.wallets.Post(ctx, tx, ledger.PostInput{
		AccountID:   account.ID,
		AmountCents: order.TotalCents,
		Type:        enums.LedgerEntryOrderPayment,
		OrderID:     &orderID,
		Description: "payment for order " + order.OrderNumber,
	}, ledger.DirectionDebit); err != nil {
		return err
	}

	order.AmountPaidCents = order.TotalCents
	order.PaymentStatus = enums.OrderPaymentPaid
	return s.repo.WithTx(tx).SaveState(ctx, order)
}

func (s *service) TransitionStatus(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.To.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", input.To)
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.To == enums.OrderStatusDisputed && strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}

	var (
		order *models.Order
		from  enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		from = order.Status

		if input.To == enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "orders enter IN_PROGRESS through bid acceptance or assignment").
				WithDetails(map[string]any{"from": from, "to": input.To})
		}
		if !CanTransition(from, input.To) {
			return transitionError(from, input.To)
		}
		if err := authorizeTransition(order, input.To, input.ActorUserID, input.ActorRole); err != nil {
			return err
		}

		if err := s.applyTransition(ctx, tx, order, input); err != nil {
			return err
		}
		if err := repo.SaveState(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:  order.ID,
				From:     from,
				To:       order.Status,
				Reason:   strings.TrimSpace(input.Reason),
				WriterID: order.WriterID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, order, from)
	return order, nil
}

// applyTransition sets the new status plus its side effects on the locked order.
func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, input TransitionInput) error {
	now := s.now()
	order.Status = input.To

	switch input.To {
	case enums.OrderStatusInReview:
		order.SubmittedAt = &now
	case enums.OrderStatusRevision:
		order.RevisionCount++
	case enums.OrderStatusDisputed:
		reason := strings.TrimSpace(input.Reason)
		order.DisputedAt = &now
		order.DisputeReason = &reason
	case enums.OrderStatusCompleted:
		order.CompletedAt = &now
		if err := s.settler.Settle(ctx, tx, order); err != nil {
			return err
		}
	case enums.OrderStatusCanceled:
		order.CanceledAt = &now
		if _, err := s.bids.WithTx(tx).RejectPendingExcept(ctx, order.ID, nil, "order canceled", now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject pending bids")
		}
		if err := s.refund(ctx, tx, order); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) refund(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order.PaymentStatus != enums.OrderPaymentPaid || order.AmountPaidCents <= 0 {
		return nil
	}
	account, err := s.wallets.EnsureAccount(ctx, tx, enums.AccountOwnerCustomer, order.CustomerID, order.Currency)
	if err != nil {
		return err
	}
	orderID := order.ID
	if _, err := s.wallets.Post(ctx, tx, ledger.PostInput{
		AccountID:   account.ID,
		AmountCents: order.AmountPaidCents,
		Type:        enums.LedgerEntryRefund,
		OrderID:     &orderID,
		Description: "refund for canceled order " + order.OrderNumber,
	}, ledger.DirectionCredit); err != nil {
		return err
	}
	order.PaymentStatus = enums.OrderPaymentRefunded
	return nil
}

func (s *service) AssignWriter(ctx context.Context, input AssignInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.WriterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and writer id required")
	}
	if input.ActorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can assign writers")
	}

	var (
		order    *models.Order
		from     enums.OrderStatus
		previous *uuid.UUID
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		from = order.Status
		if from != enums.OrderStatusAvailable && from != enums.OrderStatusInProgress {
			return transitionError(from, enums.OrderStatusInProgress)
		}

		writer, err := s.profiles.FindWriterTx(ctx, tx, input.WriterID)
		if err != nil {
			return err
		}

		now := s.now()
		rejected := []uuid.UUID{}
		if from == enums.OrderStatusAvailable {
			rejected, err = s.bids.WithTx(tx).RejectPendingExcept(ctx, order.ID, nil, "writer assigned by admin", now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject pending bids")
			}
		}

		previous = order.WriterID
		// The accepted bid stays terminal, but it no longer names the assigned writer.
		if from == enums.OrderStatusInProgress && (previous == nil || *previous != writer.ID) {
			order.WinningBidID = nil
		}
		writerID := writer.ID
		order.WriterID = &writerID
		order.ManagerID = writer.ManagerID
		if input.EditorID != nil {
			order.EditorID = input.EditorID
		}
		order.Status = enums.OrderStatusInProgress
		if order.StartedAt == nil {
			order.StartedAt = &now
		}
		if err := repo.SaveState(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign writer")
		}

		actor := buildActor(input.ActorUserID, input.ActorRole)
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWriterAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.WriterAssignedEvent{
				OrderID:          order.ID,
				WriterID:         writerID,
				PreviousWriterID: previous,
				RejectedBidCount: len(rejected),
			},
		}); err != nil {
			return err
		}
		if from == order.Status {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:  order.ID,
				From:     from,
				To:       order.Status,
				Reason:   "writer assigned by admin",
				WriterID: order.WriterID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if from != order.Status {
		s.recordTransition(ctx, order, from)
	} else if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order writer reassigned")
	}
	return order, nil
}

func (s *service) lockOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) recordTransition(ctx context.Context, order *models.Order, from enums.OrderStatus) {
	if s.metrics != nil {
		s.metrics.IncOrderTransition(string(from), string(order.Status))
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"from": from, "to": order.Status})
		s.logg.Info(logCtx, "order transitioned")
	}
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.list(ctx, ListFilter{CustomerID: &customerID, Limit: params.Limit}, params.Cursor)
}

func (s *service) ListForWriter(ctx context.Context, writerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.list(ctx, ListFilter{WriterID: &writerID, Limit: params.Limit}, params.Cursor)
}

func (s *service) ListAvailable(ctx context.Context, params pagination.Params) (*OrderList, error) {
	status := enums.OrderStatusAvailable
	return s.list(ctx, ListFilter{Status: &status, Limit: params.Limit}, params.Cursor)
}

func (s *service) ListByStatus(ctx context.Context, status enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", status)
	}
	return s.list(ctx, ListFilter{Status: &status, Limit: params.Limit}, params.Cursor)
}

func (s *service) list(ctx context.Context, filter ListFilter, rawCursor string) (*OrderList, error) {
	cursor, err := pagination.Decode(rawCursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	result := &OrderList{Items: rows}
	if next != nil {
		result.Cursor = next.Encode()
	}
	return result, nil
}

// AttachFile records a file reference. Customers attach instructions to their own open
// orders; the assigned writer attaches work while it is in progress or under revision.
func (s *service) AttachFile(ctx context.Context, input AttachFileInput) (*models.OrderFile, error) {
	if input.OrderID == uuid.Nil || input.UploaderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and uploader required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid file kind %q", input.Kind)
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file reference required")
	}

	file := &models.OrderFile{
		OrderID:    input.OrderID,
		UploaderID: input.UploaderID,
		Kind:       input.Kind,
		Reference:  reference,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := authorizeAttach(order, input); err != nil {
			return err
		}
		if err := repo.CreateFile(ctx, file); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store file reference")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

func authorizeAttach(order *models.Order, input AttachFileInput) error {
	if order.Status.IsTerminal() {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s", order.Status)
	}
	switch input.UploaderRole {
	case enums.RoleAdmin:
		return nil
	case enums.RoleCustomer:
		if order.CustomerID != input.UploaderID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if input.Kind != enums.OrderFileInstructions {
			return pkgerrors.New(pkgerrors.CodeForbidden, "customers may only attach instructions")
		}
		return nil
	case enums.RoleWriter:
		if order.WriterID == nil || *order.WriterID != input.UploaderID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this writer")
		}
		if input.Kind == enums.OrderFileInstructions {
			return pkgerrors.New(pkgerrors.CodeForbidden, "writers may not attach instructions")
		}
		if order.Status != enums.OrderStatusInProgress && order.Status != enums.OrderStatusRevision {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot submit work while order is %s", order.Status)
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role may not attach files")
}

func (s *service) ListFiles(ctx context.Context, orderID uuid.UUID) ([]models.OrderFile, error) {
	files, err := s.repo.ListFiles(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order files")
	}
	return files, nil
}

func (s *service) CompletedTotals(ctx context.Context) (CompletedTotals, error) {
	totals, err := s.repo.CompletedTotals(ctx)
	if err != nil {
		return CompletedTotals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate completed orders")
	}
	return totals, nil
}

func buildActor(userID uuid.UUID, role enums.Role) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: string(role)}
}

// orderNumber derives the public ORD-prefixed number from the order id.
func orderNumber(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return "ORD" + strings.ToUpper(hex[:8])
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
