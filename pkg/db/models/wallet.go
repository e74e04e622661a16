package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

// WalletAccount caches the running balance of one party's ledger.
type WalletAccount struct {
	ID                     uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OwnerType              enums.AccountOwnerType `gorm:"column:owner_type;type:text;not null;uniqueIndex:wallet_accounts_owner_uniq"`
	OwnerID                uuid.UUID              `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:wallet_accounts_owner_uniq"`
	Currency               enums.Currency         `gorm:"column:currency;type:text;not null;default:'USD'"`
	BalanceCents           int64                  `gorm:"column:balance_cents;not null;default:0"`
	LifetimeDepositedCents int64                  `gorm:"column:lifetime_deposited_cents;not null;default:0"`
	LifetimeEarnedCents    int64                  `gorm:"column:lifetime_earned_cents;not null;default:0"`
	LastDepositAt          *time.Time             `gorm:"column:last_deposit_at"`
	Version                int64                  `gorm:"column:version;not null;default:0"`
	CreatedAt              time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// LedgerEntry is an append-only balance change. AmountCents is signed and Sequence is the
// account version the entry produced.
type LedgerEntry struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	AccountID          uuid.UUID             `gorm:"column:account_id;type:uuid;not null;uniqueIndex:ledger_entries_account_seq"`
	Sequence           int64                 `gorm:"column:sequence;not null;uniqueIndex:ledger_entries_account_seq"`
	Type               enums.LedgerEntryType `gorm:"column:type;type:text;not null"`
	AmountCents        int64                 `gorm:"column:amount_cents;not null"`
	BalanceBeforeCents int64                 `gorm:"column:balance_before_cents;not null"`
	BalanceAfterCents  int64                 `gorm:"column:balance_after_cents;not null"`
	OrderID            *uuid.UUID            `gorm:"column:order_id;type:uuid;index"`
	PaymentID          *uuid.UUID            `gorm:"column:payment_id;type:uuid"`
	Description        *string               `gorm:"column:description"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// RevenueRule assigns a participant's percentage of a completed order's total.
type RevenueRule struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name                string            `gorm:"column:name;not null;uniqueIndex"`
	IsReturningCustomer bool              `gorm:"column:is_returning_customer;not null;default:false"`
	Role                enums.RevenueRole `gorm:"column:role;type:text;not null"`
	Percentage          decimal.Decimal   `gorm:"column:percentage;type:numeric(5,2);not null"`
	Active              bool              `gorm:"column:active;not null;default:true"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Payment tracks a gateway deposit from intent creation to confirmation.
type Payment struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID    uuid.UUID             `gorm:"column:customer_id;type:uuid;not null;index"`
	AccountID     uuid.UUID             `gorm:"column:account_id;type:uuid;not null"`
	Provider      enums.PaymentProvider `gorm:"column:provider;type:text;not null;default:'stripe'"`
	AmountCents   int64                 `gorm:"column:amount_cents;not null"`
	Currency      enums.Currency        `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status        enums.PaymentStatus   `gorm:"column:status;type:text;not null;default:'PENDING'"`
	ExternalRef   string                `gorm:"column:external_ref;not null;uniqueIndex"`
	Description   *string               `gorm:"column:description"`
	FailureReason *string               `gorm:"column:failure_reason"`
	CompletedAt   *time.Time            `gorm:"column:completed_at"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
