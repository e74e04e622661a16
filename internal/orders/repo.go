package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindForUpdate locks the order row. Every mutation of an order or its bids starts here.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// SaveState persists the lifecycle columns of an order loaded with FindForUpdate.
func (r *repository) SaveState(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":            order.Status,
			"writer_id":         order.WriterID,
			"manager_id":        order.ManagerID,
			"editor_id":         order.EditorID,
			"winning_bid_id":    order.WinningBidID,
			"payment_status":    order.PaymentStatus,
			"amount_paid_cents": order.AmountPaidCents,
			"revision_count":    order.RevisionCount,
			"dispute_reason":    order.DisputeReason,
			"settled":           order.Settled,
			"settled_at":        order.SettledAt,
			"started_at":        order.StartedAt,
			"submitted_at":      order.SubmittedAt,
			"completed_at":      order.CompletedAt,
			"canceled_at":       order.CanceledAt,
			"disputed_at":       order.DisputedAt,
			"updated_at":        order.UpdatedAt,
		}).Error
}

func (r *repository) AdjustBidCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("total_bids", gorm.Expr("total_bids + ?", delta)).Error
}

// MarkSettled flips the settled flag once; false means another caller already settled it.
func (r *repository) MarkSettled(ctx context.Context, id uuid.UUID, settledAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND settled = ?", id, false).
		Updates(map[string]any{"settled": true, "settled_at": settledAt})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.WriterID != nil {
		query = query.Where("writer_id = ?", *filter.WriterID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var orders []models.Order
	if err := pagination.Keyset(query, filter.Limit, filter.Cursor).Find(&orders).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(orders, filter.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

func (r *repository) CompletedTotals(ctx context.Context) (CompletedTotals, error) {
	var totals CompletedTotals
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COUNT(*) AS order_count, COALESCE(SUM(total_cents), 0) AS total_cents").
		Where("status = ?", enums.OrderStatusCompleted).
		Scan(&totals).Error
	return totals, err
}

func (r *repository) CreateFile(ctx context.Context, file *models.OrderFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *repository) ListFiles(ctx context.Context, orderID uuid.UUID) ([]models.OrderFile, error) {
	var files []models.OrderFile
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}
