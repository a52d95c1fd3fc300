package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/enums"
)

// Order is the customer order header; items carry the sold quantities.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber        string              `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerEmail      *string             `gorm:"column:customer_email"`
	Status             enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus      enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	Currency           string              `gorm:"column:currency;not null;default:'EUR'"`
	Subtotal           decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	DiscountAmount     decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	ShippingAmount     decimal.Decimal     `gorm:"column:shipping_amount;type:numeric(12,2);not null;default:0"`
	TaxAmount          decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	Total              decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	TrackingNumber     *string             `gorm:"column:tracking_number"`
	TrackingURL        *string             `gorm:"column:tracking_url"`
	RefundRequested    bool                `gorm:"column:refund_requested;not null;default:false"`
	RefundReason       *string             `gorm:"column:refund_reason"`
	CancellationReason *string             `gorm:"column:cancellation_reason"`
	Notes              *string             `gorm:"column:notes"`
	ConfirmedAt        *time.Time          `gorm:"column:confirmed_at"`
	ProcessingAt       *time.Time          `gorm:"column:processing_at"`
	ShippedAt          *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt        *time.Time          `gorm:"column:delivered_at"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at"`
	RefundedAt         *time.Time          `gorm:"column:refunded_at"`
	PaidAt             *time.Time          `gorm:"column:paid_at"`
	Items              []OrderItem         `gorm:"foreignKey:OrderID"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// StatusTimestampColumn names the column stamped when the order enters status.
func StatusTimestampColumn(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusConfirmed:
		return "confirmed_at"
	case enums.OrderStatusProcessing:
		return "processing_at"
	case enums.OrderStatusShipped:
		return "shipped_at"
	case enums.OrderStatusDelivered:
		return "delivered_at"
	case enums.OrderStatusCancelled:
		return "cancelled_at"
	case enums.OrderStatusRefunded:
		return "refunded_at"
	default:
		return ""
	}
}
