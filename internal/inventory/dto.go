package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
)

// ApplyMovementInput describes one stock change. Quantity is a positive magnitude
// for directional types and a signed, non-zero value for adjustment types.
type ApplyMovementInput struct {
	ProductID  uuid.UUID
	Type       enums.StockMovementType
	Quantity   int
	OrderID    *uuid.UUID
	SupplierID *uuid.UUID
	UnitCost   decimal.NullDecimal
	Reason     *string
	Reference  *string
	CreatedBy  *string
}

// MovementDTO is the API shape of a ledger row.
type MovementDTO struct {
	ID          uuid.UUID               `json:"id"`
	ProductID   uuid.UUID               `json:"product_id"`
	Type        enums.StockMovementType `json:"type"`
	Quantity    int                     `json:"quantity"`
	Delta       int                     `json:"delta"`
	StockBefore int                     `json:"stock_before"`
	StockAfter  int                     `json:"stock_after"`
	OrderID     *uuid.UUID              `json:"order_id,omitempty"`
	SupplierID  *uuid.UUID              `json:"supplier_id,omitempty"`
	UnitCost    *decimal.Decimal        `json:"unit_cost,omitempty"`
	Reason      *string                 `json:"reason,omitempty"`
	Reference   *string                 `json:"reference,omitempty"`
	CreatedBy   *string                 `json:"created_by,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewMovementDTO maps a persisted movement to its API shape.
func NewMovementDTO(m models.StockMovement) MovementDTO {
	dto := MovementDTO{
		ID:          m.ID,
		ProductID:   m.ProductID,
		Type:        m.Type,
		Quantity:    m.Quantity,
		Delta:       m.Delta(),
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		OrderID:     m.OrderID,
		SupplierID:  m.SupplierID,
		Reason:      m.Reason,
		Reference:   m.Reference,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
	}
	if m.UnitCost.Valid {
		cost := m.UnitCost.Decimal
		dto.UnitCost = &cost
	}
	return dto
}

// ReplayBreak is a ledger row that does not chain from its predecessor or whose
// stock_after disagrees with its own delta.
type ReplayBreak struct {
	MovementID       uuid.UUID `json:"movement_id"`
	ExpectedBefore   int       `json:"expected_before"`
	StockBefore      int       `json:"stock_before"`
	ExpectedAfter    int       `json:"expected_after"`
	StockAfter       int       `json:"stock_after"`
	InvalidOwnDelta  bool      `json:"invalid_own_delta"`
	BrokenContinuity bool      `json:"broken_continuity"`
}

// ReplayReport is the result of replaying a product's ledger from its first stock_before.
type ReplayReport struct {
	ProductID     uuid.UUID     `json:"product_id"`
	MovementCount int           `json:"movement_count"`
	StartingStock int           `json:"starting_stock"`
	ReplayedStock int           `json:"replayed_stock"`
	CurrentStock  int           `json:"current_stock"`
	Drift         int           `json:"drift"`
	Breaks        []ReplayBreak `json:"breaks"`
}

// Consistent reports whether the ledger fully explains the current stock.
func (r ReplayReport) Consistent() bool {
	return r.Drift == 0 && len(r.Breaks) == 0
}
