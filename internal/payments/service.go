package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assignmentpoint-backend/internal/ledger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/money"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/stripe"
)

const maxListedPayments = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Gateway creates card charges that later settle through webhooks.
type Gateway interface {
	CreateDepositIntent(ctx context.Context, in stripe.DepositIntentParams) (*stripe.DepositIntent, error)
}

// CustomerLookup confirms the depositing customer exists.
type CustomerLookup interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// Wallets is the slice of the ledger deposits and payouts post through.
type Wallets interface {
	EnsureAccount(ctx context.Context, tx *gorm.DB, ownerType enums.AccountOwnerType, ownerID uuid.UUID, currency enums.Currency) (*models.WalletAccount, error)
	Post(ctx context.Context, tx *gorm.DB, input ledger.PostInput, direction ledger.Direction) (*ledger.PostResult, error)
	GetAccountByOwner(ctx context.Context, ownerType enums.AccountOwnerType, ownerID uuid.UUID) (*models.WalletAccount, error)
	Debit(ctx context.Context, input ledger.PostInput) (*ledger.PostResult, error)
}

// Service moves money between the card gateway and customer wallets.
type Service interface {
	CreateDeposit(ctx context.Context, input CreateDepositInput) (*DepositResult, error)
	DepositConfirmed(ctx context.Context, input DepositConfirmation) (*models.Payment, error)
	DepositFailed(ctx context.Context, input DepositFailure) (*models.Payment, error)
	Withdraw(ctx context.Context, input WithdrawInput) (*ledger.PostResult, error)
	ListDeposits(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error)
}

// CreateDepositInput starts a wallet top-up.
type CreateDepositInput struct {
	CustomerID     uuid.UUID
	AmountCents    int64
	Description    string
	IdempotencyKey string
}

// DepositResult carries the pending payment and the secret the client confirms it with.
type DepositResult struct {
	Payment      models.Payment `json:"payment"`
	ClientSecret string         `json:"client_secret"`
}

// DepositConfirmation reports a captured charge. CustomerID is only needed when the
// reference was never seen before.
type DepositConfirmation struct {
	CustomerID  uuid.UUID
	AmountCents int64
	Currency    enums.Currency
	ExternalRef string
}

// DepositFailure reports a charge the gateway gave up on.
type DepositFailure struct {
	CustomerID  uuid.UUID
	AmountCents int64
	ExternalRef string
	Reason      string
}

// WithdrawInput requests a payout from an earning wallet.
type WithdrawInput struct {
	OwnerType   enums.AccountOwnerType
	OwnerID     uuid.UUID
	AmountCents int64
	Description string
}

// Deps groups the collaborators of the payments service.
type Deps struct {
	Repo      Repository
	Tx        txRunner
	Gateway   Gateway
	Customers CustomerLookup
	Wallets   Wallets
	Outbox    outboxPublisher
	Currency  enums.Currency
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	tx        txRunner
	gateway   Gateway
	customers CustomerLookup
	wallets   Wallets
	outbox    outboxPublisher
	currency  enums.Currency
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the deposit and payout flows.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if deps.Customers == nil {
		return nil, fmt.Errorf("customer lookup required")
	}
	if deps.Wallets == nil {
		return nil, fmt.Errorf("wallets required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	currency := deps.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	return &service{
		repo:      deps.Repo,
		tx:        deps.Tx,
		gateway:   deps.Gateway,
		customers: deps.Customers,
		wallets:   deps.Wallets,
		outbox:    deps.Outbox,
		currency:  currency,
		logg:      deps.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateDeposit opens a gateway intent and records it as a PENDING payment. Nothing is
// credited until the gateway confirms the charge.
func (s *service) CreateDeposit(ctx context.Context, input CreateDepositInput) (*DepositResult, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}
	if _, err := s.customers.GetCustomer(ctx, input.CustomerID); err != nil {
		return nil, err
	}

	var account *models.WalletAccount
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		account, err = s.wallets.EnsureAccount(ctx, tx, enums.AccountOwnerCustomer, input.CustomerID, s.currency)
		return err
	}); err != nil {
		return nil, err
	}

	paymentID := uuid.New()
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = "wallet deposit"
	}
	intent, err := s.gateway.CreateDepositIntent(ctx, stripe.DepositIntentParams{
		AmountCents:    input.AmountCents,
		Currency:       string(account.Currency),
		CustomerID:     input.CustomerID.String(),
		PaymentID:      paymentID.String(),
		Description:    description,
		IdempotencyKey: input.IdempotencyKey,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deposit intent")
	}

	payment := &models.Payment{
		ID:          paymentID,
		CustomerID:  input.CustomerID,
		AccountID:   account.ID,
		Provider:    enums.PaymentProviderStripe,
		AmountCents: input.AmountCents,
		Currency:    account.Currency,
		Status:      enums.PaymentStatusPending,
		ExternalRef: intent.ID,
		Description: &description,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "deposit intent already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record deposit")
	}

	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, input.CustomerID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"payment_id":   payment.ID.String(),
			"external_ref": payment.ExternalRef,
			"amount":       money.Format(payment.AmountCents),
		})
		s.logg.Info(logCtx, "deposit intent created")
	}
	return &DepositResult{Payment: *payment, ClientSecret: intent.ClientSecret}, nil
}

// DepositConfirmed credits the customer's wallet once per external reference. Replays of a
// completed reference return the stored payment without posting again.
func (s *service) DepositConfirmed(ctx context.Context, input DepositConfirmation) (*models.Payment, error) {
	ref := strings.TrimSpace(input.ExternalRef)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}

	var (
		payment *models.Payment
		posted  bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		payment, err = s.loadOrCreate(ctx, tx, ref, input.CustomerID, input.AmountCents, input.Currency)
		if err != nil {
			return err
		}
		if !payment.Status.CanBecome(enums.PaymentStatusCompleted) {
			return nil
		}
		if payment.AmountCents != input.AmountCents {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "confirmed amount %d does not match deposit amount %d", input.AmountCents, payment.AmountCents).
				WithDetails(map[string]any{"payment_id": payment.ID, "expected_cents": payment.AmountCents, "confirmed_cents": input.AmountCents})
		}

		account, err := s.wallets.EnsureAccount(ctx, tx, enums.AccountOwnerCustomer, payment.CustomerID, payment.Currency)
		if err != nil {
			return err
		}
		paymentID := payment.ID
		if _, err := s.wallets.Post(ctx, tx, ledger.PostInput{
			AccountID:   account.ID,
			AmountCents: payment.AmountCents,
			Type:        enums.LedgerEntryDeposit,
			PaymentID:   &paymentID,
			Description: "deposit " + ref,
		}, ledger.DirectionCredit); err != nil {
			return err
		}

		now := s.now()
		payment.AccountID = account.ID
		payment.Status = enums.PaymentStatusCompleted
		payment.FailureReason = nil
		payment.CompletedAt = &now
		if err := repo.SaveOutcome(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payment")
		}
		posted = true

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDepositConfirmed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data:          depositEvent(payment),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, payment.CustomerID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"payment_id":   payment.ID.String(),
			"external_ref": ref,
			"replay":       !posted,
		})
		s.logg.Info(logCtx, "deposit confirmed")
	}
	return payment, nil
}

// DepositFailed records a failed charge. A reference that already completed is left as is.
func (s *service) DepositFailed(ctx context.Context, input DepositFailure) (*models.Payment, error) {
	ref := strings.TrimSpace(input.ExternalRef)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "payment failed"
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payment, err = s.loadOrCreate(ctx, tx, ref, input.CustomerID, input.AmountCents, "")
		if err != nil {
			return err
		}
		if !payment.Status.CanBecome(enums.PaymentStatusFailed) {
			return nil
		}

		payment.Status = enums.PaymentStatusFailed
		payment.FailureReason = &reason
		if err := s.repo.WithTx(tx).SaveOutcome(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDepositFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data:          depositEvent(payment),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, payment.CustomerID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"payment_id": payment.ID.String(), "reason": reason})
		s.logg.Warn(logCtx, "deposit failed")
	}
	return payment, nil
}

// loadOrCreate locks the payment for ref, creating a PENDING row when the gateway reports
// a charge this service never initiated. Creating needs both the customer and the amount.
func (s *service) loadOrCreate(ctx context.Context, tx *gorm.DB, ref string, customerID uuid.UUID, amount int64, currency enums.Currency) (*models.Payment, error) {
	repo := s.repo.WithTx(tx)
	payment, err := repo.FindByExternalRefForUpdate(ctx, ref)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if customerID == uuid.Nil || amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found").
			WithDetails(map[string]any{"external_ref": ref})
	}
	if currency == "" {
		currency = s.currency
	}

	account, err := s.wallets.EnsureAccount(ctx, tx, enums.AccountOwnerCustomer, customerID, currency)
	if err != nil {
		return nil, err
	}
	payment = &models.Payment{
		ID:          uuid.New(),
		CustomerID:  customerID,
		AccountID:   account.ID,
		Provider:    enums.PaymentProviderStripe,
		AmountCents: amount,
		Currency:    account.Currency,
		Status:      enums.PaymentStatusPending,
		ExternalRef: ref,
	}
	if err := repo.Create(ctx, payment); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment is being processed").
				WithDetails(map[string]any{"external_ref": ref})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
	}
	return payment, nil
}

var payoutOwners = map[enums.AccountOwnerType]bool{
	enums.AccountOwnerWriter:     true,
	enums.AccountOwnerSalesAgent: true,
	enums.AccountOwnerManager:    true,
	enums.AccountOwnerEditor:     true,
}

// Withdraw debits an earning wallet for a payout. Customer funds only leave through orders.
func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*ledger.PostResult, error) {
	if !payoutOwners[input.OwnerType] {
		return nil, pkgerrors.Newf(pkgerrors.CodeForbidden, "%s wallets cannot be withdrawn from", input.OwnerType)
	}
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}

	account, err := s.wallets.GetAccountByOwner(ctx, input.OwnerType, input.OwnerID)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = "payout request"
	}
	result, err := s.wallets.Debit(ctx, ledger.PostInput{
		AccountID:   account.ID,
		AmountCents: input.AmountCents,
		Type:        enums.LedgerEntryWithdrawal,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithAccountID(ctx, account.ID.String())
		logCtx = s.logg.WithField(logCtx, "amount", money.Format(input.AmountCents))
		s.logg.Info(logCtx, "withdrawal posted")
	}
	return result, nil
}

func (s *service) ListDeposits(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID, maxListedPayments)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deposits")
	}
	return rows, nil
}

func depositEvent(payment *models.Payment) payloads.DepositEvent {
	event := payloads.DepositEvent{
		PaymentID:   payment.ID,
		CustomerID:  payment.CustomerID,
		AmountCents: payment.AmountCents,
		ExternalRef: payment.ExternalRef,
		Status:      payment.Status,
	}
	if payment.FailureReason != nil {
		event.FailureReason = *payment.FailureReason
	}
	return event
}
