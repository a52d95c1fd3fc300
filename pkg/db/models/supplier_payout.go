package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/enums"
)

// SupplierPayout records money owed to a consignment supplier for a period.
type SupplierPayout struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID       uuid.UUID          `gorm:"column:supplier_id;type:uuid;not null;index"`
	PeriodStart      time.Time          `gorm:"column:period_start;not null"`
	PeriodEnd        time.Time          `gorm:"column:period_end;not null"`
	GrossSales       decimal.Decimal    `gorm:"column:gross_sales;type:numeric(12,2);not null"`
	CommissionAmount decimal.Decimal    `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	PayoutAmount     decimal.Decimal    `gorm:"column:payout_amount;type:numeric(12,2);not null"`
	Status           enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	PaidAt           *time.Time         `gorm:"column:paid_at"`
	PaymentReference *string            `gorm:"column:payment_reference"`
	InvoiceID        *uuid.UUID         `gorm:"column:invoice_id;type:uuid"`
	Notes            *string            `gorm:"column:notes"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *SupplierPayout) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
