package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type postingMetrics interface {
	IncLedgerPosting(entryType, direction string)
}

// Direction says whether a posting adds to or removes from a balance.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Service is the only component allowed to change wallet balances.
type Service interface {
	Credit(ctx context.Context, input PostInput) (*PostResult, error)
	Debit(ctx context.Context, input PostInput) (*PostResult, error)
	Post(ctx context.Context, tx *gorm.DB, input PostInput, direction Direction) (*PostResult, error)
	EnsureAccount(ctx context.Context, tx *gorm.DB, ownerType enums.AccountOwnerType, ownerID uuid.UUID, currency enums.Currency) (*models.WalletAccount, error)
	LockAccounts(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (*models.WalletAccount, error)
	GetAccountByOwner(ctx context.Context, ownerType enums.AccountOwnerType, ownerID uuid.UUID) (*models.WalletAccount, error)
	ListEntries(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*EntryList, error)
	Audit(ctx context.Context, accountID uuid.UUID) (*AuditReport, error)
	TotalsByType(ctx context.Context) ([]TypeTotal, error)
}

// PostInput describes one balance change. AmountCents is always positive; the direction
// decides the sign stored on the entry.
type PostInput struct {
	AccountID   uuid.UUID
	AmountCents int64
	Type        enums.LedgerEntryType
	OrderID     *uuid.UUID
	PaymentID   *uuid.UUID
	Description string
}

// PostResult is the appended entry plus the account balance after it.
type PostResult struct {
	Entry        models.LedgerEntry `json:"entry"`
	BalanceCents int64              `json:"balance_cents"`
}

// EntryList is one page of ledger entries, newest first.
type EntryList struct {
	Items  []models.LedgerEntry `json:"items"`
	Cursor string               `json:"cursor"`
}

// AuditReport compares the cached balance with the entry history.
type AuditReport struct {
	AccountID          uuid.UUID   `json:"account_id"`
	CachedBalanceCents int64       `json:"cached_balance_cents"`
	EntrySumCents      int64       `json:"entry_sum_cents"`
	EntryCount         int         `json:"entry_count"`
	BrokenEntryIDs     []uuid.UUID `json:"broken_entry_ids"`
	Consistent         bool        `json:"consistent"`
}

type service struct {
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	metrics postingMetrics
	now     func() time.Time
}

// NewService wires a ledger service with the provided repository and transaction runner.
func NewService(repo Repository, tx txRunner, logg *logger.Logger, metrics postingMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		logg:    logg,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Credit(ctx context.Context, input PostInput) (*PostResult, error) {
	return s.postInOwnTx(ctx, input, DirectionCredit)
}

func (s *service) Debit(ctx context.Context, input PostInput) (*PostResult, error) {
	return s.postInOwnTx(ctx, input, DirectionDebit)
}

func (s *service) postInOwnTx(ctx context.Context, input PostInput, direction Direction) (*PostResult, error) {
	if err := validatePost(input, direction); err != nil {
		return nil, err
	}
	var result *PostResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.Post(ctx, tx, input, direction)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Post appends one entry inside the caller's transaction. The account row is locked for
// the remainder of that transaction.
func (s *service) Post(ctx context.Context, tx *gorm.DB, input PostInput, direction Direction) (*PostResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger posting requires a transaction")
	}
	if err := validatePost(input, direction); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	account, err := repo.FindAccountForUpdate(ctx, input.AccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet account")
	}

	signed := input.AmountCents
	if direction == DirectionDebit {
		if account.BalanceCents < input.AmountCents {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient funds").WithDetails(map[string]any{
				"account_id":      account.ID,
				"balance_cents":   account.BalanceCents,
				"requested_cents": input.AmountCents,
			})
		}
		signed = -input.AmountCents
	}

	now := s.now()
	before := account.BalanceCents
	account.BalanceCents = before + signed
	account.Version++
	account.UpdatedAt = now
	if direction == DirectionCredit {
		switch {
		case input.Type == enums.LedgerEntryDeposit:
			account.LifetimeDepositedCents += input.AmountCents
			account.LastDepositAt = &now
		case input.Type.IsEarning():
			account.LifetimeEarnedCents += input.AmountCents
		}
	}

	entry := models.LedgerEntry{
		AccountID:          account.ID,
		Sequence:           account.Version,
		Type:               input.Type,
		AmountCents:        signed,
		BalanceBeforeCents: before,
		BalanceAfterCents:  account.BalanceCents,
		OrderID:            input.OrderID,
		PaymentID:          input.PaymentID,
		CreatedAt:          now,
	}
	if input.Description != "" {
		desc := input.Description
		entry.Description = &desc
	}

	if err := repo.CreateEntry(ctx, &entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}
	if err := repo.SaveBalance(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}

	if s.metrics != nil {
		s.metrics.IncLedgerPosting(string(input.Type), string(direction))
	}
	if s.logg != nil {
		logCtx := s.logg.WithAccountID(ctx, account.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"entry_type":    input.Type,
			"amount_cents":  signed,
			"balance_cents": account.BalanceCents,
		})
		s.logg.Info(logCtx, "ledger entry posted")
	}

	return &PostResult{Entry: entry, BalanceCents: account.BalanceCents}, nil
}

func validatePost(input PostInput, direction Direction) error {
	if input.AccountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if input.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid ledger entry type %q", input.Type)
	}
	if direction != DirectionCredit && direction != DirectionDebit {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid posting direction %q", direction)
	}
	return nil
}

// EnsureAccount returns the owner's wallet, creating it on first use. A create that loses
// the race to a concurrent one re-reads the winner's row.
func (s *service) EnsureAccount(ctx context.Context, tx *gorm.DB, ownerType enums.AccountOwnerType, ownerID uuid.UUID, currency enums.Currency) (*models.WalletAccount, error) {
	if !ownerType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid account owner type %q", ownerType)
	}
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account owner id required")
	}
	if currency == "" {
		currency = enums.CurrencyUSD
	}

	repo := s.repo.WithTx(tx)
	account, err := repo.FindAccountByOwner(ctx, ownerType, ownerID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
	}

	account = &models.WalletAccount{
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Currency:  currency,
	}
	created, err := repo.CreateAccountIfAbsent(ctx, account)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet account")
	}
	if created {
		return account, nil
	}
	existing, err := repo.FindAccountByOwner(ctx, ownerType, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload wallet account")
	}
	return existing, nil
}

func (s *service) LockAccounts(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "account locking requires a transaction")
	}
	if _, err := s.repo.WithTx(tx).LockAccounts(ctx, ids); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wallet account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet accounts")
	}
	return nil
}

func (s *service) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.BalanceCents, nil
}

func (s *service) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.WalletAccount, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	account, err := s.repo.FindAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
	}
	return account, nil
}

func (s *service) GetAccountByOwner(ctx context.Context, ownerType enums.AccountOwnerType, ownerID uuid.UUID) (*models.WalletAccount, error) {
	if !ownerType.IsValid() || ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account owner required")
	}
	account, err := s.repo.FindAccountByOwner(ctx, ownerType, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
	}
	return account, nil
}

func (s *service) ListEntries(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*EntryList, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListEntries(ctx, accountID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	result := &EntryList{Items: rows}
	if next != nil {
		result.Cursor = next.Encode()
	}
	return result, nil
}

// Audit replays the account's entries in sequence order and checks that each entry starts
// where the previous one ended and that the final balance matches the cached one.
func (s *service) Audit(ctx context.Context, accountID uuid.UUID) (*AuditReport, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.EntriesInSequence(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entries")
	}

	report := &AuditReport{
		AccountID:          account.ID,
		CachedBalanceCents: account.BalanceCents,
		EntryCount:         len(entries),
		BrokenEntryIDs:     []uuid.UUID{},
	}
	var running int64
	for _, entry := range entries {
		if entry.BalanceBeforeCents != running || entry.BalanceAfterCents != entry.BalanceBeforeCents+entry.AmountCents {
			report.BrokenEntryIDs = append(report.BrokenEntryIDs, entry.ID)
		}
		running += entry.AmountCents
		report.EntrySumCents += entry.AmountCents
	}
	report.Consistent = len(report.BrokenEntryIDs) == 0 && report.EntrySumCents == report.CachedBalanceCents

	if !report.Consistent && s.logg != nil {
		logCtx := s.logg.WithAccountID(ctx, account.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"cached_balance_cents": report.CachedBalanceCents,
			"entry_sum_cents":      report.EntrySumCents,
			"broken_entries":       len(report.BrokenEntryIDs),
		})
		s.logg.Warn(logCtx, "ledger audit found inconsistencies")
	}
	return report, nil
}

func (s *service) TotalsByType(ctx context.Context) ([]TypeTotal, error) {
	totals, err := s.repo.TotalsByType(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ledger entries")
	}
	return totals, nil
}
