package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
)

// Supplier inserts a supplier of the given type. rate may be empty for no commission rate.
func Supplier(t testing.TB, conn *gorm.DB, typ enums.SupplierType, rate string) *models.Supplier {
	t.Helper()
	supplier := &models.Supplier{
		Name: fmt.Sprintf("Supplier %s", uuid.NewString()[:8]),
		Type: typ,
	}
	if rate != "" {
		supplier.CommissionRate = decimal.NewNullDecimal(decimal.RequireFromString(rate))
	}
	require.NoError(t, conn.Create(supplier).Error)
	return supplier
}

// Product inserts a product with the given stock. The stock is written
// directly; ledger tests that need history should record movements instead.
func Product(t testing.TB, conn *gorm.DB, stock int, supplier *models.Supplier) *models.Product {
	t.Helper()
	product := &models.Product{
		SKU:            "SKU-" + uuid.NewString()[:8],
		Title:          "Test Pressing",
		Stock:          stock,
		StockThreshold: 2,
		CostPrice:      decimal.RequireFromString("9.50"),
	}
	if supplier != nil {
		product.SupplierID = &supplier.ID
		typ := supplier.Type
		product.SupplierType = &typ
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

// Reload fetches the current row for a model with an ID field.
func Reload[T any](t testing.TB, conn *gorm.DB, id uuid.UUID) *T {
	t.Helper()
	var out T
	require.NoError(t, conn.Where("id = ?", id).First(&out).Error)
	return &out
}
