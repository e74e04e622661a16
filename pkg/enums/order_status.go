package enums

import "fmt"

// OrderStatus tracks the lifecycle of a writing order.
type OrderStatus string

const (
	OrderStatusAvailable  OrderStatus = "AVAILABLE"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusInReview   OrderStatus = "IN_REVIEW"
	OrderStatusRevision   OrderStatus = "REVISION"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
	OrderStatusDisputed   OrderStatus = "DISPUTED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusAvailable,
	OrderStatusInProgress,
	OrderStatusInReview,
	OrderStatusRevision,
	OrderStatusCompleted,
	OrderStatusCanceled,
	OrderStatusDisputed,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave this status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
