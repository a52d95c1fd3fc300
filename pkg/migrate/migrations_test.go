package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/outre-records/inventory-core/pkg/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no migration matching %s", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func assertContainsAll(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		assert.Contains(t, content, sub)
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestEnumMigrationMatchesDomainValues(t *testing.T) {
	content := readMigration(t, "create_enum_types")
	assertContainsAll(t, content, []string{
		"CREATE TYPE supplier_type AS ENUM ('consignment', 'depot_vente', 'purchase', 'own')",
		"'consignment_in', 'consignment_out', 'sale_reversal', 'sale_adjustment'",
		"CREATE TYPE order_item_status AS ENUM ('active', 'cancelled', 'returned')",
		"CREATE TYPE payout_status AS ENUM ('pending', 'paid')",
	})
}

func TestStockMovementsAreAppendOnly(t *testing.T) {
	content := readMigration(t, "create_stock_movements")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS stock_movements",
		"BEFORE UPDATE OR DELETE ON stock_movements",
		"RAISE EXCEPTION 'stock_movements is append-only'",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_product_created",
		"DROP TABLE IF EXISTS stock_movements",
	})
}

func TestOrderItemsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders_tables")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity >= 1)",
		"CHECK (status <> 'returned' OR (return_reason IS NOT NULL",
		"DROP TABLE IF EXISTS order_items",
	})
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Payout Notes!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_payout_notes.sql"))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestValidateDirRequiresGooseHeaders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_broken.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestListVersionsSorted(t *testing.T) {
	versions, err := migrate.ListVersions("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	for i := 1; i < len(versions); i++ {
		assert.Less(t, versions[i-1], versions[i])
	}
}
