package ledger

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/pagination"
)

// Repository manages persistence for wallet accounts and ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAccountIfAbsent(ctx context.Context, account *models.WalletAccount) (bool, error)
	FindAccount(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error)
	FindAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error)
	FindAccountByOwner(ctx context.Context, ownerType enums.AccountOwnerType, ownerID uuid.UUID) (*models.WalletAccount, error)
	LockAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.WalletAccount, error)
	SaveBalance(ctx context.Context, account *models.WalletAccount) error
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListEntries(ctx context.Context, accountID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LedgerEntry, *pagination.Cursor, error)
	EntriesInSequence(ctx context.Context, accountID uuid.UUID) ([]models.LedgerEntry, error)
	TotalsByType(ctx context.Context) ([]TypeTotal, error)
}

// TypeTotal aggregates the signed amount posted for one entry type.
type TypeTotal struct {
	Type       enums.LedgerEntryType `gorm:"column:type" json:"type"`
	TotalCents int64                 `gorm:"column:total_cents" json:"total_cents"`
	EntryCount int64                 `gorm:"column:entry_count" json:"entry_count"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateAccountIfAbsent inserts the account unless the owner already has one; the bool
// reports whether this call created the row.
func (r *repository) CreateAccountIfAbsent(ctx context.Context, account *models.WalletAccount) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_type"}, {Name: "owner_id"}},
			DoNothing: true,
		}).
		Create(account)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindAccount(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error) {
	var account models.WalletAccount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error) {
	var account models.WalletAccount
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByOwner(ctx context.Context, ownerType enums.AccountOwnerType, ownerID uuid.UUID) (*models.WalletAccount, error) {
	var account models.WalletAccount
	if err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// LockAccounts takes row locks in ascending id order so concurrent multi-account postings
// cannot deadlock each other.
func (r *repository) LockAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.WalletAccount, error) {
	ordered := uniqueSorted(ids)
	locked := make(map[uuid.UUID]*models.WalletAccount, len(ordered))
	for _, id := range ordered {
		account, err := r.FindAccountForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = account
	}
	return locked, nil
}

func (r *repository) SaveBalance(ctx context.Context, account *models.WalletAccount) error {
	return r.db.WithContext(ctx).
		Model(&models.WalletAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"balance_cents":            account.BalanceCents,
			"lifetime_deposited_cents": account.LifetimeDepositedCents,
			"lifetime_earned_cents":    account.LifetimeEarnedCents,
			"last_deposit_at":          account.LastDepositAt,
			"version":                  account.Version,
			"updated_at":               account.UpdatedAt,
		}).Error
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntries(ctx context.Context, accountID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LedgerEntry, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("account_id = ?", accountID)

	var entries []models.LedgerEntry
	if err := pagination.Keyset(query, limit, cursor).Find(&entries).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(entries, limit, func(e models.LedgerEntry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return page, next, nil
}

func (r *repository) EntriesInSequence(ctx context.Context, accountID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("sequence ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) TotalsByType(ctx context.Context) ([]TypeTotal, error) {
	var totals []TypeTotal
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("type, COALESCE(SUM(amount_cents), 0) AS total_cents, COUNT(*) AS entry_count").
		Group("type").
		Order("type ASC").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
