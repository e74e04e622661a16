package bids

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

// Repository defines persistence operations for bids.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, bid *models.Bid) error
	Find(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Bid, error)
	ListByWriter(ctx context.Context, writerID uuid.UUID, status *enums.BidStatus) ([]models.Bid, error)
	ListPendingByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Bid, error)
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, update StatusUpdate) (bool, error)
	RejectPendingExcept(ctx context.Context, orderID uuid.UUID, keep *uuid.UUID, reason string, at time.Time) ([]uuid.UUID, error)
	HasActiveBid(ctx context.Context, orderID, writerID uuid.UUID) (bool, error)
}

// StatusUpdate is the decision applied to a PENDING bid.
type StatusUpdate struct {
	Status    enums.BidStatus
	Reason    *string
	DecidedAt time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bids repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&bid).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&bid).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("submitted_at ASC, id ASC").
		Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *repository) ListByWriter(ctx context.Context, writerID uuid.UUID, status *enums.BidStatus) ([]models.Bid, error) {
	query := r.db.WithContext(ctx).Where("writer_id = ?", writerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var bids []models.Bid
	if err := query.Order("submitted_at DESC, id DESC").Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *repository) ListPendingByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.BidStatusPending).
		Order("submitted_at ASC, id ASC").
		Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

// UpdateStatusIfPending applies the decision only while the bid is still PENDING and
// reports whether a row changed.
func (r *repository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, update StatusUpdate) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("id = ? AND status = ?", id, enums.BidStatusPending).
		Updates(map[string]any{
			"status":           update.Status,
			"rejection_reason": update.Reason,
			"decided_at":       update.DecidedAt,
			"updated_at":       update.DecidedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RejectPendingExcept rejects every PENDING bid on the order other than keep and returns
// the ids it rejected.
func (r *repository) RejectPendingExcept(ctx context.Context, orderID uuid.UUID, keep *uuid.UUID, reason string, at time.Time) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("order_id = ? AND status = ?", orderID, enums.BidStatusPending)
	if keep != nil {
		query = query.Where("id <> ?", *keep)
	}

	var ids []uuid.UUID
	if err := query.Order("submitted_at ASC, id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}

	if err := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("id IN ? AND status = ?", ids, enums.BidStatusPending).
		Updates(map[string]any{
			"status":           enums.BidStatusRejected,
			"rejection_reason": reason,
			"decided_at":       at,
			"updated_at":       at,
		}).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// HasActiveBid reports whether the writer holds a bid on the order that was not withdrawn.
func (r *repository) HasActiveBid(ctx context.Context, orderID, writerID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("order_id = ? AND writer_id = ? AND status <> ?", orderID, writerID, enums.BidStatusWithdrawn).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
