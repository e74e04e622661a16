package enums

import "fmt"

// RevenueRole names a participant that receives a share of a completed order.
type RevenueRole string

const (
	RevenueRoleWriter     RevenueRole = "writer"
	RevenueRoleSalesAgent RevenueRole = "sales_agent"
	RevenueRoleEditor     RevenueRole = "editor"
	RevenueRoleManager    RevenueRole = "manager"
)

var validRevenueRoles = []RevenueRole{
	RevenueRoleWriter,
	RevenueRoleSalesAgent,
	RevenueRoleEditor,
	RevenueRoleManager,
}

// String implements fmt.Stringer.
func (r RevenueRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RevenueRole.
func (r RevenueRole) IsValid() bool {
	for _, candidate := range validRevenueRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// EntryType returns the ledger entry type posted for this role's share.
func (r RevenueRole) EntryType() LedgerEntryType {
	switch r {
	case RevenueRoleWriter:
		return LedgerEntryWriterEarning
	case RevenueRoleSalesAgent:
		return LedgerEntrySalesCommission
	case RevenueRoleEditor:
		return LedgerEntryEditorEarning
	case RevenueRoleManager:
		return LedgerEntryManagerEarning
	}
	return ""
}

// OwnerType returns the wallet owner kind credited with this role's share.
func (r RevenueRole) OwnerType() AccountOwnerType {
	switch r {
	case RevenueRoleWriter:
		return AccountOwnerWriter
	case RevenueRoleSalesAgent:
		return AccountOwnerSalesAgent
	case RevenueRoleEditor:
		return AccountOwnerEditor
	case RevenueRoleManager:
		return AccountOwnerManager
	}
	return ""
}

// ParseRevenueRole converts raw input into a RevenueRole.
func ParseRevenueRole(value string) (RevenueRole, error) {
	for _, candidate := range validRevenueRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid revenue role %q", value)
}
