package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/enums"
)

// Supplier provides stock either outright or on consignment.
type Supplier struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name           string              `gorm:"column:name;not null"`
	Type           enums.SupplierType  `gorm:"column:type;type:supplier_type;not null"`
	CommissionRate decimal.NullDecimal `gorm:"column:commission_rate;type:numeric(5,4)"`
	Email          *string             `gorm:"column:email"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Supplier) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
