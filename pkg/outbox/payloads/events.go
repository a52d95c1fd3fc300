package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/outre-records/inventory-core/pkg/enums"
)

// OrderCreatedEvent announces a placed order and the sale movements it made.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	ItemCount   int             `json:"item_count"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
}

// OrderStatusChangedEvent is emitted by the generic status setter and shipping.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
	TrackingURL    *string           `json:"tracking_url,omitempty"`
	ChangedAt      time.Time         `json:"changed_at"`
}

// OrderCancelledEvent fires once per order, whether cancelled explicitly or by
// the cascade after its last active item went away.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Automatic   bool      `json:"automatic"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// OrderRefundedEvent asks billing to issue a credit note.
type OrderRefundedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Reason      string          `json:"reason,omitempty"`
	RefundedAt  time.Time       `json:"refunded_at"`
}

// OrderItemChangedEvent covers item cancellation, return and quantity edits.
type OrderItemChangedEvent struct {
	OrderID          uuid.UUID             `json:"order_id"`
	OrderItemID      uuid.UUID             `json:"order_item_id"`
	ProductID        uuid.UUID             `json:"product_id"`
	Status           enums.OrderItemStatus `json:"status"`
	PreviousQuantity int                   `json:"previous_quantity"`
	Quantity         int                   `json:"quantity"`
	StockMovementID  uuid.UUID             `json:"stock_movement_id"`
	Reason           string                `json:"reason,omitempty"`
	OccurredAt       time.Time             `json:"occurred_at"`
}

// PayoutPaidEvent triggers invoice-number issuance for the supplier payout.
type PayoutPaidEvent struct {
	PayoutID         uuid.UUID       `json:"payout_id"`
	SupplierID       uuid.UUID       `json:"supplier_id"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	GrossSales       decimal.Decimal `json:"gross_sales"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	PayoutAmount     decimal.Decimal `json:"payout_amount"`
	PaymentReference *string         `json:"payment_reference,omitempty"`
	PaidAt           time.Time       `json:"paid_at"`
}

// PayoutDeletedEvent keeps an audit copy of a removed payout.
type PayoutDeletedEvent struct {
	PayoutID     uuid.UUID          `json:"payout_id"`
	SupplierID   uuid.UUID          `json:"supplier_id"`
	Status       enums.PayoutStatus `json:"status"`
	PayoutAmount decimal.Decimal    `json:"payout_amount"`
	PaidAt       *time.Time         `json:"paid_at,omitempty"`
	DeletedBy    string             `json:"deleted_by,omitempty"`
	DeletedAt    time.Time          `json:"deleted_at"`
}

// LowStockDetectedEvent warns purchasing that a product hit its threshold.
type LowStockDetectedEvent struct {
	ProductID      uuid.UUID `json:"product_id"`
	SKU            string    `json:"sku"`
	Title          string    `json:"title"`
	Stock          int       `json:"stock"`
	StockThreshold int       `json:"stock_threshold"`
}

// LedgerDriftDetectedEvent reports a product whose stock no longer matches a
// replay of its movements.
type LedgerDriftDetectedEvent struct {
	ProductID     uuid.UUID `json:"product_id"`
	SKU           string    `json:"sku"`
	RecordedStock int       `json:"recorded_stock"`
	ReplayedStock int       `json:"replayed_stock"`
	BrokenRows    int       `json:"broken_rows"`
	DetectedAt    time.Time `json:"detected_at"`
}
