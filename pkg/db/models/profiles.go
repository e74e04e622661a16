package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

// Customer is the ordering profile of an identity user. ID equals the user id.
type Customer struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SalesAgentID     *uuid.UUID `gorm:"column:sales_agent_id;type:uuid;index"`
	ReferralCodeUsed *string    `gorm:"column:referral_code_used"`
	IsReturning      bool       `gorm:"column:is_returning;not null;default:false"`
	TotalOrders      int        `gorm:"column:total_orders;not null;default:0"`
	TotalSpentCents  int64      `gorm:"column:total_spent_cents;not null;default:0"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Writer is the bidding profile of an identity user. ID equals the user id.
type Writer struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	ManagerID            *uuid.UUID               `gorm:"column:manager_id;type:uuid;index"`
	Rating               decimal.Decimal          `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	TotalOrdersCompleted int                      `gorm:"column:total_orders_completed;not null;default:0"`
	Availability         enums.WriterAvailability `gorm:"column:availability;type:text;not null;default:'available'"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// SalesAgent refers customers through a referral code and earns commission on their orders.
type SalesAgent struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ReferralCode   string    `gorm:"column:referral_code;not null;uniqueIndex"`
	TotalReferrals int       `gorm:"column:total_referrals;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
