package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// shareOrder is the posting order of participant shares. When rounding pushes the shares
// past the total, the overflow is taken from the end of this list so the writer is paid last.
var shareOrder = []enums.RevenueRole{
	enums.RevenueRoleWriter,
	enums.RevenueRoleSalesAgent,
	enums.RevenueRoleManager,
	enums.RevenueRoleEditor,
}

// Percentages maps each participating role to its share of an order total.
type Percentages map[enums.RevenueRole]decimal.Decimal

// Sum adds up every percentage.
func (p Percentages) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, pct := range p {
		total = total.Add(pct)
	}
	return total
}

// Share is one participant's cut in minor units.
type Share struct {
	Role        enums.RevenueRole
	Percentage  decimal.Decimal
	AmountCents int64
}

// Split is the full distribution of an order total. PlatformCents is whatever the shares
// leave over, so the shares plus PlatformCents always equal the total.
type Split struct {
	TotalCents    int64
	Shares        []Share
	PlatformCents int64
}

// ComputeSplit distributes totalCents according to pcts, rounding each share half-up.
func ComputeSplit(totalCents int64, pcts Percentages) (Split, error) {
	if totalCents < 0 {
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "total cannot be negative")
	}
	for role, pct := range pcts {
		if !role.IsValid() {
			return Split{}, pkgerrors.Newf(pkgerrors.CodeConfiguration, "unknown revenue role %q", role)
		}
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return Split{}, pkgerrors.Newf(pkgerrors.CodeConfiguration, "percentage for %s outside [0, 100]", role)
		}
	}
	if sum := pcts.Sum(); sum.GreaterThan(hundred) {
		return Split{}, pkgerrors.Newf(pkgerrors.CodeConfiguration, "revenue rules sum to %s%%", sum.String()).
			WithDetails(map[string]any{"sum": sum.String()})
	}

	split := Split{TotalCents: totalCents}
	var allocated int64
	for _, role := range orderedRoles(pcts) {
		cents := money.Percent(totalCents, pcts[role])
		split.Shares = append(split.Shares, Share{Role: role, Percentage: pcts[role], AmountCents: cents})
		allocated += cents
	}

	for i := len(split.Shares) - 1; i >= 0 && allocated > totalCents; i-- {
		excess := allocated - totalCents
		if excess > split.Shares[i].AmountCents {
			excess = split.Shares[i].AmountCents
		}
		split.Shares[i].AmountCents -= excess
		allocated -= excess
	}
	split.PlatformCents = totalCents - allocated
	return split, nil
}

// ShareFor returns the amount assigned to role, or zero.
func (s Split) ShareFor(role enums.RevenueRole) int64 {
	for _, share := range s.Shares {
		if share.Role == role {
			return share.AmountCents
		}
	}
	return 0
}

func orderedRoles(pcts Percentages) []enums.RevenueRole {
	roles := make([]enums.RevenueRole, 0, len(pcts))
	for _, role := range shareOrder {
		if _, ok := pcts[role]; ok {
			roles = append(roles, role)
		}
	}
	return roles
}
