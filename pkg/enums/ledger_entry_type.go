package enums

import "fmt"

// LedgerEntryType classifies a wallet posting.
type LedgerEntryType string

const (
	LedgerEntryDeposit         LedgerEntryType = "DEPOSIT"
	LedgerEntryWithdrawal      LedgerEntryType = "WITHDRAWAL"
	LedgerEntryOrderPayment    LedgerEntryType = "ORDER_PAYMENT"
	LedgerEntryWriterEarning   LedgerEntryType = "WRITER_EARNING"
	LedgerEntryEditorEarning   LedgerEntryType = "EDITOR_EARNING"
	LedgerEntryManagerEarning  LedgerEntryType = "MANAGER_EARNING"
	LedgerEntrySalesCommission LedgerEntryType = "SALES_COMMISSION"
	LedgerEntryPlatformProfit  LedgerEntryType = "PLATFORM_PROFIT"
	LedgerEntryRefund          LedgerEntryType = "REFUND"
	LedgerEntryBonus           LedgerEntryType = "BONUS"
	LedgerEntryPenalty         LedgerEntryType = "PENALTY"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryDeposit,
	LedgerEntryWithdrawal,
	LedgerEntryOrderPayment,
	LedgerEntryWriterEarning,
	LedgerEntryEditorEarning,
	LedgerEntryManagerEarning,
	LedgerEntrySalesCommission,
	LedgerEntryPlatformProfit,
	LedgerEntryRefund,
	LedgerEntryBonus,
	LedgerEntryPenalty,
}

// String implements fmt.Stringer.
func (t LedgerEntryType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known LedgerEntryType.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsEarning reports whether the entry releases money earned from an order.
func (t LedgerEntryType) IsEarning() bool {
	switch t {
	case LedgerEntryWriterEarning, LedgerEntryEditorEarning, LedgerEntryManagerEarning, LedgerEntrySalesCommission:
		return true
	}
	return false
}

// ParseLedgerEntryType converts raw input into a LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
