package enums

import "fmt"

// SupplierType decides how a supplier is compensated for sold items.
type SupplierType string

const (
	SupplierTypeConsignment SupplierType = "consignment"
	SupplierTypePurchase    SupplierType = "purchase"
	SupplierTypeOwn         SupplierType = "own"
	SupplierTypeDepotVente  SupplierType = "depot_vente"
)

var validSupplierTypes = []SupplierType{
	SupplierTypeConsignment,
	SupplierTypePurchase,
	SupplierTypeOwn,
	SupplierTypeDepotVente,
}

// String implements fmt.Stringer.
func (s SupplierType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SupplierType.
func (s SupplierType) IsValid() bool {
	for _, candidate := range validSupplierTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// EarnsCommission reports whether sales are settled to the supplier minus a
// house commission.
func (s SupplierType) EarnsCommission() bool {
	return s == SupplierTypeConsignment || s == SupplierTypeDepotVente
}

// ParseSupplierType converts raw input into a SupplierType.
func ParseSupplierType(value string) (SupplierType, error) {
	for _, candidate := range validSupplierTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid supplier type %q", value)
}
