package enums

import "fmt"

// Role is the platform-level role carried in access tokens.
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleWriter        Role = "writer"
	RoleWriterManager Role = "writer_manager"
	RoleEditor        Role = "editor"
	RoleSalesAgent    Role = "sales_agent"
	RoleAdmin         Role = "admin"
)

var validRoles = []Role{
	RoleCustomer,
	RoleWriter,
	RoleWriterManager,
	RoleEditor,
	RoleSalesAgent,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// AccountOwnerType maps a role onto the wallet owner kind it earns into.
func (r Role) AccountOwnerType() (AccountOwnerType, bool) {
	switch r {
	case RoleCustomer:
		return AccountOwnerCustomer, true
	case RoleWriter:
		return AccountOwnerWriter, true
	case RoleWriterManager:
		return AccountOwnerManager, true
	case RoleEditor:
		return AccountOwnerEditor, true
	case RoleSalesAgent:
		return AccountOwnerSalesAgent, true
	}
	return "", false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
