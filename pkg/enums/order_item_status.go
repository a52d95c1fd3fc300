package enums

import "fmt"

// OrderItemStatus tracks whether a line item still counts as sold.
type OrderItemStatus string

const (
	OrderItemStatusActive    OrderItemStatus = "active"
	OrderItemStatusCancelled OrderItemStatus = "cancelled"
	OrderItemStatusReturned  OrderItemStatus = "returned"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusActive,
	OrderItemStatusCancelled,
	OrderItemStatusReturned,
}

// orderItemTransitions lists the only legal moves; terminal states have none.
var orderItemTransitions = map[OrderItemStatus][]OrderItemStatus{
	OrderItemStatusActive: {OrderItemStatusCancelled, OrderItemStatusReturned},
}

// String implements fmt.Stringer.
func (s OrderItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderItemStatus.
func (s OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderItemStatus) IsTerminal() bool {
	return s.IsValid() && len(orderItemTransitions[s]) == 0
}

// CanTransitionTo reports whether next is reachable from s.
func (s OrderItemStatus) CanTransitionTo(next OrderItemStatus) bool {
	for _, candidate := range orderItemTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}
