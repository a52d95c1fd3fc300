package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/enums"
)

// OrderItem is one sold line. Supplier linkage and consignment rate are
// snapshotted at sale time so later catalog edits leave settlements untouched.
type OrderItem struct {
	ID                      uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID                 uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID               uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	Quantity                int                   `gorm:"column:quantity;not null"`
	UnitPrice               decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice              decimal.Decimal       `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status                  enums.OrderItemStatus `gorm:"column:status;type:order_item_status;not null;default:'active'"`
	StockMovementID         *uuid.UUID            `gorm:"column:stock_movement_id;type:uuid"`
	ReversedStockMovementID *uuid.UUID            `gorm:"column:reversed_stock_movement_id;type:uuid"`
	CancelledAt             *time.Time            `gorm:"column:cancelled_at"`
	ReturnedAt              *time.Time            `gorm:"column:returned_at"`
	ReturnReason            *string               `gorm:"column:return_reason"`
	SupplierID              *uuid.UUID            `gorm:"column:supplier_id;type:uuid;index"`
	SupplierType            *enums.SupplierType   `gorm:"column:supplier_type;type:supplier_type"`
	ConsignmentRate         decimal.NullDecimal   `gorm:"column:consignment_rate;type:numeric(5,4)"`
	CreatedAt               time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// LineTotal is quantity x unit price at currency precision.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
