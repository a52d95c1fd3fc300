package enums

import "fmt"

// OrderStatus is the order-level fulfillment state.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// TerminalOrderStatuses accept no further transition.
var TerminalOrderStatuses = []OrderStatus{
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
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

// IsTerminal reports whether the order can no longer change status.
func (s OrderStatus) IsTerminal() bool {
	for _, candidate := range TerminalOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// RequiresReason marks side transitions that need their dedicated command.
func (s OrderStatus) RequiresReason() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CanTransitionTo reports whether next is reachable from s. Any non-terminal
// status may move to any other known status; forward, lateral and side moves
// are all accepted.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() || s == next {
		return false
	}
	return !s.IsTerminal()
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
