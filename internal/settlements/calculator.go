// Package settlements turns sold consignment items into supplier payouts.
package settlements

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
)

// Settlement is what one supplier earned over a period.
type Settlement struct {
	SupplierID       uuid.UUID          `json:"supplier_id"`
	SupplierName     string             `json:"supplier_name"`
	SupplierType     enums.SupplierType `json:"supplier_type"`
	PeriodStart      time.Time          `json:"period_start"`
	PeriodEnd        time.Time          `json:"period_end"`
	ItemCount        int                `json:"item_count"`
	UnitsSold        int                `json:"units_sold"`
	GrossSales       decimal.Decimal    `json:"gross_sales"`
	CommissionAmount decimal.Decimal    `json:"commission_amount"`
	PayoutAmount     decimal.Decimal    `json:"payout_amount"`
	OurMargin        decimal.Decimal    `json:"our_margin"`
}

// ComputePeriodSettlement aggregates the supplier's active items created inside
// [periodStart, periodEnd].
//
// Each item is settled under the supplier terms frozen onto it at sale time;
// the supplier's current type and rate only fill in for items sold without a
// snapshot. Commission-earning items owe the supplier gross minus commission.
// Purchase and own items are owed nothing and the house keeps gross.
func ComputePeriodSettlement(supplier models.Supplier, periodStart, periodEnd time.Time, items []models.OrderItem) Settlement {
	out := Settlement{
		SupplierID:       supplier.ID,
		SupplierName:     supplier.Name,
		SupplierType:     supplier.Type,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		GrossSales:       decimal.Zero,
		CommissionAmount: decimal.Zero,
		PayoutAmount:     decimal.Zero,
		OurMargin:        decimal.Zero,
	}

	consigned := decimal.Zero
	retained := decimal.Zero
	commission := decimal.Zero
	for _, item := range items {
		if !inSettlement(item, supplier.ID, periodStart, periodEnd) {
			continue
		}
		out.ItemCount++
		out.UnitsSold += item.Quantity
		out.GrossSales = out.GrossSales.Add(item.TotalPrice)
		if !itemType(item, supplier).EarnsCommission() {
			retained = retained.Add(item.TotalPrice)
			continue
		}
		consigned = consigned.Add(item.TotalPrice)
		commission = commission.Add(item.TotalPrice.Mul(effectiveRate(item, supplier)))
	}
	out.GrossSales = out.GrossSales.Round(2)

	out.CommissionAmount = commission.Round(2)
	out.PayoutAmount = consigned.Round(2).Sub(out.CommissionAmount)
	out.OurMargin = out.CommissionAmount.Add(retained.Round(2))
	return out
}

func itemType(item models.OrderItem, supplier models.Supplier) enums.SupplierType {
	if item.SupplierType != nil {
		return *item.SupplierType
	}
	return supplier.Type
}

func inSettlement(item models.OrderItem, supplierID uuid.UUID, start, end time.Time) bool {
	if item.SupplierID == nil || *item.SupplierID != supplierID {
		return false
	}
	if item.Status != enums.OrderItemStatusActive {
		return false
	}
	return !item.CreatedAt.Before(start) && !item.CreatedAt.After(end)
}

func effectiveRate(item models.OrderItem, supplier models.Supplier) decimal.Decimal {
	if item.ConsignmentRate.Valid {
		return item.ConsignmentRate.Decimal
	}
	if supplier.CommissionRate.Valid {
		return supplier.CommissionRate.Decimal
	}
	return decimal.Zero
}
