package settlement

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/config"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/money"
)

// Policy carries the settlement knobs that do not live in revenue_rules.
type Policy struct {
	AllowDefaultSplit bool
	DefaultSplit      Percentages
	PlatformOwnerID   uuid.UUID
}

// PolicyFromConfig parses the configured fallback split and platform account owner.
func PolicyFromConfig(cfg config.SettlementConfig) (Policy, error) {
	raw := map[enums.RevenueRole]string{
		enums.RevenueRoleWriter:     cfg.DefaultWriterPct,
		enums.RevenueRoleSalesAgent: cfg.DefaultSalesAgentPct,
		enums.RevenueRoleManager:    cfg.DefaultManagerPct,
		enums.RevenueRoleEditor:     cfg.DefaultEditorPct,
	}
	split := Percentages{}
	for role, value := range raw {
		if value == "" {
			continue
		}
		pct, err := money.ParsePercent(value)
		if err != nil {
			return Policy{}, fmt.Errorf("default %s split: %w", role, err)
		}
		split[role] = pct
	}
	if split.Sum().GreaterThan(hundred) {
		return Policy{}, fmt.Errorf("default split sums to %s%%", split.Sum().String())
	}

	ownerID, err := uuid.Parse(cfg.PlatformAccountOwnerID)
	if err != nil {
		return Policy{}, fmt.Errorf("parse platform account owner id: %w", err)
	}
	return Policy{
		AllowDefaultSplit: cfg.AllowDefaultSplit,
		DefaultSplit:      split,
		PlatformOwnerID:   ownerID,
	}, nil
}
