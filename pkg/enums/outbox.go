package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregateOrderItem      OutboxAggregateType = "order_item"
	AggregateProduct        OutboxAggregateType = "product"
	AggregateSupplierPayout OutboxAggregateType = "supplier_payout"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateOrderItem,
	AggregateProduct,
	AggregateSupplierPayout,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated             OutboxEventType = "order_created"
	EventOrderStatusChanged       OutboxEventType = "order_status_changed"
	EventOrderShipped             OutboxEventType = "order_shipped"
	EventOrderCancelled           OutboxEventType = "order_cancelled"
	EventOrderRefunded            OutboxEventType = "order_refunded"
	EventOrderItemCancelled       OutboxEventType = "order_item_cancelled"
	EventOrderItemReturned        OutboxEventType = "order_item_returned"
	EventOrderItemQuantityChanged OutboxEventType = "order_item_quantity_changed"
	EventPayoutPaid               OutboxEventType = "payout_paid"
	EventPayoutDeleted            OutboxEventType = "payout_deleted"
	EventLowStockDetected         OutboxEventType = "low_stock_detected"
	EventLedgerDriftDetected      OutboxEventType = "ledger_drift_detected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderShipped,
	EventOrderCancelled,
	EventOrderRefunded,
	EventOrderItemCancelled,
	EventOrderItemReturned,
	EventOrderItemQuantityChanged,
	EventPayoutPaid,
	EventPayoutDeleted,
	EventLowStockDetected,
	EventLedgerDriftDetected,
}

// String implements fmt.Stringer.
func (e OutboxEventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
