package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// WalletOpener creates the wallet account that backs a new profile.
type WalletOpener interface {
	EnsureAccount(ctx context.Context, tx *gorm.DB, ownerType enums.AccountOwnerType, ownerID uuid.UUID, currency enums.Currency) (*models.WalletAccount, error)
}

// Service manages customer, writer and sales agent profiles.
type Service interface {
	RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*models.Customer, error)
	RegisterWriter(ctx context.Context, input RegisterWriterInput) (*models.Writer, error)
	RegisterSalesAgent(ctx context.Context, input RegisterSalesAgentInput) (*models.SalesAgent, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetWriter(ctx context.Context, id uuid.UUID) (*models.Writer, error)
	SetWriterAvailability(ctx context.Context, id uuid.UUID, availability enums.WriterAvailability) error

	RecordOrderPlaced(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Customer, error)
	FindWriterTx(ctx context.Context, tx *gorm.DB, writerID uuid.UUID) (*models.Writer, error)
	RecordOrderCompleted(ctx context.Context, tx *gorm.DB, input CompletionInput) error
}

type RegisterCustomerInput struct {
	UserID       uuid.UUID
	ReferralCode string
}

type RegisterWriterInput struct {
	UserID    uuid.UUID
	ManagerID *uuid.UUID
}

type RegisterSalesAgentInput struct {
	UserID       uuid.UUID
	ReferralCode string
}

// CompletionInput carries the counters a completed order bumps.
type CompletionInput struct {
	WriterID   uuid.UUID
	CustomerID uuid.UUID
	TotalCents int64
}

type service struct {
	repo     *Repository
	tx       txRunner
	wallets  WalletOpener
	currency enums.Currency
	logg     *logger.Logger
}

// NewService wires the profiles service.
func NewService(repo *Repository, tx txRunner, wallets WalletOpener, currency enums.Currency, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet opener required")
	}
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	return &service{repo: repo, tx: tx, wallets: wallets, currency: currency, logg: logg}, nil
}

// RegisterCustomer creates the profile and wallet. Calling it again returns the existing
// profile untouched, so a referral is only counted once.
func (s *service) RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*models.Customer, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	code := normalizeReferralCode(input.ReferralCode)

	var customer *models.Customer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindCustomer(ctx, input.UserID)
		if err == nil {
			customer = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}

		customer = &models.Customer{ID: input.UserID}
		if code != "" {
			agent, err := repo.FindSalesAgentByReferralCode(ctx, code)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation, "unknown referral code")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales agent")
			}
			customer.SalesAgentID = &agent.ID
			customer.ReferralCodeUsed = &code
			if err := repo.IncrementReferrals(ctx, agent.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count referral")
			}
		}

		if err := repo.CreateCustomer(ctx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
		}
		if _, err := s.wallets.EnsureAccount(ctx, tx, enums.AccountOwnerCustomer, customer.ID, s.currency); err != nil {
			return err
		}
		s.logRegistered(ctx, "customer", customer.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) RegisterWriter(ctx context.Context, input RegisterWriterInput) (*models.Writer, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.ManagerID != nil && *input.ManagerID == input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "writer cannot manage themselves")
	}

	var writer *models.Writer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindWriter(ctx, input.UserID)
		if err == nil {
			writer = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load writer")
		}

		writer = &models.Writer{
			ID:           input.UserID,
			ManagerID:    input.ManagerID,
			Availability: enums.WriterAvailable,
		}
		if err := repo.CreateWriter(ctx, writer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create writer")
		}
		if _, err := s.wallets.EnsureAccount(ctx, tx, enums.AccountOwnerWriter, writer.ID, s.currency); err != nil {
			return err
		}
		s.logRegistered(ctx, "writer", writer.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return writer, nil
}

func (s *service) RegisterSalesAgent(ctx context.Context, input RegisterSalesAgentInput) (*models.SalesAgent, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	code := normalizeReferralCode(input.ReferralCode)
	if code == "" {
		code = generateReferralCode()
	}

	var agent *models.SalesAgent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindSalesAgent(ctx, input.UserID)
		if err == nil {
			agent = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales agent")
		}

		if _, err := repo.FindSalesAgentByReferralCode(ctx, code); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "referral code already taken")
		}

		agent = &models.SalesAgent{ID: input.UserID, ReferralCode: code}
		if err := repo.CreateSalesAgent(ctx, agent); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "referral code already taken")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sales agent")
		}
		if _, err := s.wallets.EnsureAccount(ctx, tx, enums.AccountOwnerSalesAgent, agent.ID, s.currency); err != nil {
			return err
		}
		s.logRegistered(ctx, "sales_agent", agent.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agent, nil
}

func (s *service) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindCustomer(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "customer")
	}
	return customer, nil
}

func (s *service) GetWriter(ctx context.Context, id uuid.UUID) (*models.Writer, error) {
	writer, err := s.repo.FindWriter(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "writer")
	}
	return writer, nil
}

func (s *service) SetWriterAvailability(ctx context.Context, id uuid.UUID, availability enums.WriterAvailability) error {
	if !availability.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid availability %q", availability)
	}
	rows, err := s.repo.UpdateWriterAvailability(ctx, id, availability)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update writer availability")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "writer not found")
	}
	return nil
}

// RecordOrderPlaced bumps the customer's order count inside tx and flips the returning flag
// once the count passes one. The returned profile carries the updated flag.
func (s *service) RecordOrderPlaced(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Customer, error) {
	repo := s.repo.WithTx(tx)
	customer, err := repo.FindCustomerForUpdate(ctx, customerID)
	if err != nil {
		return nil, mapLookupErr(err, "customer")
	}
	customer.TotalOrders++
	if customer.TotalOrders > 1 {
		customer.IsReturning = true
	}
	if err := repo.UpdateCustomerCounters(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer counters")
	}
	return customer, nil
}

func (s *service) FindWriterTx(ctx context.Context, tx *gorm.DB, writerID uuid.UUID) (*models.Writer, error) {
	writer, err := s.repo.WithTx(tx).FindWriter(ctx, writerID)
	if err != nil {
		return nil, mapLookupErr(err, "writer")
	}
	return writer, nil
}

func (s *service) RecordOrderCompleted(ctx context.Context, tx *gorm.DB, input CompletionInput) error {
	repo := s.repo.WithTx(tx)
	if err := repo.IncrementWriterCompleted(ctx, input.WriterID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update writer counters")
	}
	if err := repo.AddCustomerSpend(ctx, input.CustomerID, input.TotalCents); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer spend")
	}
	return nil
}

func (s *service) logRegistered(ctx context.Context, kind string, id uuid.UUID) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"profile": kind, "profile_id": id.String()})
	s.logg.Info(ctx, "profile registered")
}

func mapLookupErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", what)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func normalizeReferralCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func generateReferralCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "AP" + strings.ToUpper(raw[:8])
}
