package settlement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
)

// Repository persists revenue rules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActive(ctx context.Context, returning bool) ([]models.RevenueRule, error)
	LockActive(ctx context.Context, returning bool) ([]models.RevenueRule, error)
	List(ctx context.Context) ([]models.RevenueRule, error)
	Find(ctx context.Context, id uuid.UUID) (*models.RevenueRule, error)
	FindByName(ctx context.Context, name string) (*models.RevenueRule, error)
	Create(ctx context.Context, rule *models.RevenueRule) error
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a revenue rule repository backed by gorm.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListActive(ctx context.Context, returning bool) ([]models.RevenueRule, error) {
	var rules []models.RevenueRule
	if err := r.db.WithContext(ctx).
		Where("active = ? AND is_returning_customer = ?", true, returning).
		Order("role ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// LockActive reads the active rules for a customer class with row locks so concurrent rule
// edits serialize against the sum check.
func (r *repository) LockActive(ctx context.Context, returning bool) ([]models.RevenueRule, error) {
	var rules []models.RevenueRule
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("active = ? AND is_returning_customer = ?", true, returning).
		Order("role ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) List(ctx context.Context) ([]models.RevenueRule, error) {
	var rules []models.RevenueRule
	if err := r.db.WithContext(ctx).
		Order("is_returning_customer ASC, role ASC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.RevenueRule, error) {
	var rule models.RevenueRule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.RevenueRule, error) {
	var rule models.RevenueRule
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repository) Create(ctx context.Context, rule *models.RevenueRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

// Deactivate retires a rule. Rules are never deleted so past settlements stay explainable.
func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RevenueRule{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
