package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

// CustomerDTO is the transport shape of a customer profile.
type CustomerDTO struct {
	ID               uuid.UUID  `json:"id"`
	SalesAgentID     *uuid.UUID `json:"sales_agent_id,omitempty"`
	ReferralCodeUsed *string    `json:"referral_code_used,omitempty"`
	IsReturning      bool       `json:"is_returning"`
	TotalOrders      int        `json:"total_orders"`
	TotalSpentCents  int64      `json:"total_spent_cents"`
	CreatedAt        time.Time  `json:"created_at"`
}

// WriterDTO is the transport shape of a writer profile.
type WriterDTO struct {
	ID                   uuid.UUID                `json:"id"`
	ManagerID            *uuid.UUID               `json:"manager_id,omitempty"`
	Rating               decimal.Decimal          `json:"rating"`
	TotalOrdersCompleted int                      `json:"total_orders_completed"`
	Availability         enums.WriterAvailability `json:"availability"`
	CreatedAt            time.Time                `json:"created_at"`
}

// SalesAgentDTO is the transport shape of a sales agent profile.
type SalesAgentDTO struct {
	ID             uuid.UUID `json:"id"`
	ReferralCode   string    `json:"referral_code"`
	TotalReferrals int       `json:"total_referrals"`
	CreatedAt      time.Time `json:"created_at"`
}

func CustomerFromModel(c *models.Customer) *CustomerDTO {
	if c == nil {
		return nil
	}
	return &CustomerDTO{
		ID:               c.ID,
		SalesAgentID:     c.SalesAgentID,
		ReferralCodeUsed: c.ReferralCodeUsed,
		IsReturning:      c.IsReturning,
		TotalOrders:      c.TotalOrders,
		TotalSpentCents:  c.TotalSpentCents,
		CreatedAt:        c.CreatedAt,
	}
}

func WriterFromModel(w *models.Writer) *WriterDTO {
	if w == nil {
		return nil
	}
	return &WriterDTO{
		ID:                   w.ID,
		ManagerID:            w.ManagerID,
		Rating:               w.Rating,
		TotalOrdersCompleted: w.TotalOrdersCompleted,
		Availability:         w.Availability,
		CreatedAt:            w.CreatedAt,
	}
}

func SalesAgentFromModel(a *models.SalesAgent) *SalesAgentDTO {
	if a == nil {
		return nil
	}
	return &SalesAgentDTO{
		ID:             a.ID,
		ReferralCode:   a.ReferralCode,
		TotalReferrals: a.TotalReferrals,
		CreatedAt:      a.CreatedAt,
	}
}
