package enums

import "fmt"

// StockMovementType classifies a ledger entry and fixes the sign of its delta.
type StockMovementType string

const (
	MovementPurchase       StockMovementType = "purchase"
	MovementSale           StockMovementType = "sale"
	MovementReturn         StockMovementType = "return"
	MovementAdjustment     StockMovementType = "adjustment"
	MovementLoss           StockMovementType = "loss"
	MovementConsignmentIn  StockMovementType = "consignment_in"
	MovementConsignmentOut StockMovementType = "consignment_out"
	MovementSaleReversal   StockMovementType = "sale_reversal"
	MovementSaleAdjustment StockMovementType = "sale_adjustment"
)

// MovementDirection describes how a movement's quantity affects stock.
type MovementDirection int

const (
	DirectionUnknown MovementDirection = iota
	// DirectionIn adds the quantity to stock.
	DirectionIn
	// DirectionOut subtracts the quantity from stock.
	DirectionOut
	// DirectionSigned applies the quantity as given, sign included.
	DirectionSigned
)

var movementDirections = map[StockMovementType]MovementDirection{
	MovementPurchase:       DirectionIn,
	MovementReturn:         DirectionIn,
	MovementConsignmentIn:  DirectionIn,
	MovementSaleReversal:   DirectionIn,
	MovementSale:           DirectionOut,
	MovementLoss:           DirectionOut,
	MovementConsignmentOut: DirectionOut,
	MovementAdjustment:     DirectionSigned,
	MovementSaleAdjustment: DirectionSigned,
}

var validStockMovementTypes = []StockMovementType{
	MovementPurchase,
	MovementSale,
	MovementReturn,
	MovementAdjustment,
	MovementLoss,
	MovementConsignmentIn,
	MovementConsignmentOut,
	MovementSaleReversal,
	MovementSaleAdjustment,
}

// ManualMovementTypes are the movements an operator may record directly;
// the sale family is produced by order commands only.
var ManualMovementTypes = []StockMovementType{
	MovementPurchase,
	MovementReturn,
	MovementAdjustment,
	MovementLoss,
	MovementConsignmentIn,
	MovementConsignmentOut,
}

// String implements fmt.Stringer.
func (t StockMovementType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known StockMovementType.
func (t StockMovementType) IsValid() bool {
	_, ok := movementDirections[t]
	return ok
}

// Direction returns how the type's quantity is applied to stock.
func (t StockMovementType) Direction() MovementDirection {
	return movementDirections[t]
}

// IsManual reports whether operators may record this type directly.
func (t StockMovementType) IsManual() bool {
	for _, candidate := range ManualMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// SignedDelta returns the stock change for quantity under this type. Directional
// types require a positive magnitude; signed types require a non-zero quantity.
func (t StockMovementType) SignedDelta(quantity int) (int, error) {
	switch t.Direction() {
	case DirectionIn:
		if quantity <= 0 {
			return 0, fmt.Errorf("%s quantity must be positive, got %d", t, quantity)
		}
		return quantity, nil
	case DirectionOut:
		if quantity <= 0 {
			return 0, fmt.Errorf("%s quantity must be positive, got %d", t, quantity)
		}
		return -quantity, nil
	case DirectionSigned:
		if quantity == 0 {
			return 0, fmt.Errorf("%s quantity must be non-zero", t)
		}
		return quantity, nil
	default:
		return 0, fmt.Errorf("invalid stock movement type %q", t)
	}
}

// ParseStockMovementType converts raw input into a StockMovementType.
func ParseStockMovementType(value string) (StockMovementType, error) {
	for _, candidate := range validStockMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement type %q", value)
}
