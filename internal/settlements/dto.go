package settlements

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
)

// PayoutFilters narrow the payout list.
type PayoutFilters struct {
	SupplierID *uuid.UUID
	Status     *enums.PayoutStatus
}

// ListPayoutsInput bundles pagination and filters.
type ListPayoutsInput struct {
	Limit   int
	Cursor  string
	Filters PayoutFilters
}

// CreatePayoutInput carries caller-supplied payout amounts, usually pre-filled
// from a computed settlement and possibly edited by hand.
type CreatePayoutInput struct {
	SupplierID       uuid.UUID       `json:"supplier_id" validate:"required"`
	PeriodStart      time.Time       `json:"period_start" validate:"required"`
	PeriodEnd        time.Time       `json:"period_end" validate:"required"`
	GrossSales       decimal.Decimal `json:"gross_sales"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	PayoutAmount     decimal.Decimal `json:"payout_amount"`
	Notes            *string         `json:"notes"`
}

// PayoutDTO is the API shape of a supplier payout.
type PayoutDTO struct {
	ID               uuid.UUID          `json:"id"`
	SupplierID       uuid.UUID          `json:"supplier_id"`
	PeriodStart      time.Time          `json:"period_start"`
	PeriodEnd        time.Time          `json:"period_end"`
	GrossSales       decimal.Decimal    `json:"gross_sales"`
	CommissionAmount decimal.Decimal    `json:"commission_amount"`
	PayoutAmount     decimal.Decimal    `json:"payout_amount"`
	Status           enums.PayoutStatus `json:"status"`
	PaidAt           *time.Time         `json:"paid_at,omitempty"`
	PaymentReference *string            `json:"payment_reference,omitempty"`
	InvoiceID        *uuid.UUID         `json:"invoice_id,omitempty"`
	Notes            *string            `json:"notes,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewPayoutDTO maps a persisted payout.
func NewPayoutDTO(p models.SupplierPayout) PayoutDTO {
	return PayoutDTO{
		ID:               p.ID,
		SupplierID:       p.SupplierID,
		PeriodStart:      p.PeriodStart,
		PeriodEnd:        p.PeriodEnd,
		GrossSales:       p.GrossSales,
		CommissionAmount: p.CommissionAmount,
		PayoutAmount:     p.PayoutAmount,
		Status:           p.Status,
		PaidAt:           p.PaidAt,
		PaymentReference: p.PaymentReference,
		InvoiceID:        p.InvoiceID,
		Notes:            p.Notes,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
