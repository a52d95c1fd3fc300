package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/enums"
)

// Product is a catalog record. Stock is owned by the ledger and only changes
// together with a StockMovement row.
type Product struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SKU             string              `gorm:"column:sku;not null;uniqueIndex"`
	Title           string              `gorm:"column:title;not null"`
	Artist          *string             `gorm:"column:artist"`
	Format          *string             `gorm:"column:format"`
	Stock           int                 `gorm:"column:stock;not null;default:0"`
	StockThreshold  int                 `gorm:"column:stock_threshold;not null;default:0"`
	CostPrice       decimal.Decimal     `gorm:"column:cost_price;type:numeric(12,2);not null;default:0"`
	SupplierID      *uuid.UUID          `gorm:"column:supplier_id;type:uuid"`
	SupplierType    *enums.SupplierType `gorm:"column:supplier_type;type:supplier_type"`
	ConsignmentRate decimal.NullDecimal `gorm:"column:consignment_rate;type:numeric(5,4)"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// IsLowStock reports whether stock is at or below the reorder threshold.
func (p Product) IsLowStock() bool {
	return p.Stock <= p.StockThreshold
}
