package enums

import "fmt"

// AccountOwnerType identifies which kind of party owns a wallet account.
type AccountOwnerType string

const (
	AccountOwnerCustomer   AccountOwnerType = "customer"
	AccountOwnerWriter     AccountOwnerType = "writer"
	AccountOwnerSalesAgent AccountOwnerType = "sales_agent"
	AccountOwnerManager    AccountOwnerType = "manager"
	AccountOwnerEditor     AccountOwnerType = "editor"
	AccountOwnerPlatform   AccountOwnerType = "platform"
)

var validAccountOwnerTypes = []AccountOwnerType{
	AccountOwnerCustomer,
	AccountOwnerWriter,
	AccountOwnerSalesAgent,
	AccountOwnerManager,
	AccountOwnerEditor,
	AccountOwnerPlatform,
}

// String implements fmt.Stringer.
func (o AccountOwnerType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known AccountOwnerType.
func (o AccountOwnerType) IsValid() bool {
	for _, candidate := range validAccountOwnerTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseAccountOwnerType converts raw input into an AccountOwnerType.
func ParseAccountOwnerType(value string) (AccountOwnerType, error) {
	for _, candidate := range validAccountOwnerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account owner type %q", value)
}
