package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their files.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SaveState(ctx context.Context, order *models.Order) error
	AdjustBidCount(ctx context.Context, id uuid.UUID, delta int) error
	MarkSettled(ctx context.Context, id uuid.UUID, settledAt time.Time) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, *pagination.Cursor, error)
	CompletedTotals(ctx context.Context) (CompletedTotals, error)
	CreateFile(ctx context.Context, file *models.OrderFile) error
	ListFiles(ctx context.Context, orderID uuid.UUID) ([]models.OrderFile, error)
}

// ListFilter narrows an order listing. Zero values mean "any".
type ListFilter struct {
	CustomerID *uuid.UUID
	WriterID   *uuid.UUID
	Status     *enums.OrderStatus
	Limit      int
	Cursor     *pagination.Cursor
}

// CompletedTotals summarizes settled business.
type CompletedTotals struct {
	Count      int64 `gorm:"column:order_count" json:"count"`
	TotalCents int64 `gorm:"column:total_cents" json:"total_cents"`
}
