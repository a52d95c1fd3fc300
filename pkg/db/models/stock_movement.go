package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/enums"
)

// StockMovement is an immutable ledger fact. Rows are only ever inserted.
type StockMovement struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index:idx_stock_movements_product_created,priority:1"`
	Type        enums.StockMovementType `gorm:"column:type;type:stock_movement_type;not null"`
	Quantity    int                     `gorm:"column:quantity;not null"`
	StockBefore int                     `gorm:"column:stock_before;not null"`
	StockAfter  int                     `gorm:"column:stock_after;not null"`
	OrderID     *uuid.UUID              `gorm:"column:order_id;type:uuid;index"`
	SupplierID  *uuid.UUID              `gorm:"column:supplier_id;type:uuid"`
	UnitCost    decimal.NullDecimal     `gorm:"column:unit_cost;type:numeric(12,2)"`
	Reference   *string                 `gorm:"column:reference"`
	Reason      *string                 `gorm:"column:reason"`
	CreatedAt   time.Time               `gorm:"column:created_at;not null;index:idx_stock_movements_product_created,priority:2"`
	CreatedBy   *string                 `gorm:"column:created_by"`
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// Delta is the signed change this movement applied to stock.
func (m StockMovement) Delta() int {
	return m.StockAfter - m.StockBefore
}
