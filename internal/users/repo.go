package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

// Repository exposes profile persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a profiles repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *Repository) FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindCustomerForUpdate loads the customer with a row lock held until the transaction ends.
func (r *Repository) FindCustomerForUpdate(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *Repository) UpdateCustomerCounters(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customer.ID).
		Updates(map[string]any{
			"total_orders":      customer.TotalOrders,
			"is_returning":      customer.IsReturning,
			"total_spent_cents": customer.TotalSpentCents,
		}).Error
}

func (r *Repository) AddCustomerSpend(ctx context.Context, id uuid.UUID, cents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		UpdateColumn("total_spent_cents", gorm.Expr("total_spent_cents + ?", cents)).Error
}

func (r *Repository) CreateWriter(ctx context.Context, writer *models.Writer) error {
	return r.db.WithContext(ctx).Create(writer).Error
}

func (r *Repository) FindWriter(ctx context.Context, id uuid.UUID) (*models.Writer, error) {
	var writer models.Writer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&writer).Error; err != nil {
		return nil, err
	}
	return &writer, nil
}

func (r *Repository) IncrementWriterCompleted(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Writer{}).
		Where("id = ?", id).
		UpdateColumn("total_orders_completed", gorm.Expr("total_orders_completed + 1")).Error
}

func (r *Repository) UpdateWriterAvailability(ctx context.Context, id uuid.UUID, availability enums.WriterAvailability) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Writer{}).
		Where("id = ?", id).
		Update("availability", availability)
	return result.RowsAffected, result.Error
}

func (r *Repository) CreateSalesAgent(ctx context.Context, agent *models.SalesAgent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

func (r *Repository) FindSalesAgent(ctx context.Context, id uuid.UUID) (*models.SalesAgent, error) {
	var agent models.SalesAgent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *Repository) FindSalesAgentByReferralCode(ctx context.Context, code string) (*models.SalesAgent, error) {
	var agent models.SalesAgent
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *Repository) IncrementReferrals(ctx context.Context, agentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SalesAgent{}).
		Where("id = ?", agentID).
		UpdateColumn("total_referrals", gorm.Expr("total_referrals + 1")).Error
}
