package inventory

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
	"github.com/stitchfield/stitchfield-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  in_stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO products (id, sku, name, price_cents, stock_qty, in_stock) VALUES (?, ?, ?, ?, ?, ?)`,
		id, "SKU-"+id.String()[:8], "Test Tee", 2500, stock, stock > 0,
	).Error)
	return id
}

func productStock(t *testing.T, db *gorm.DB, id uuid.UUID) (int, bool) {
	t.Helper()

	var row struct {
		StockQty int
		InStock  bool
	}
	require.NoError(t, db.Raw(`SELECT stock_qty, in_stock FROM products WHERE id = ?`, id).Scan(&row).Error)
	return row.StockQty, row.InStock
}

func TestLedgerDeduct(t *testing.T) {
	db := setupInventoryTestDB(t)
	ledger, err := NewLedger(db, testLogger())
	require.NoError(t, err)

	id := seedProduct(t, db, 5)

	require.NoError(t, ledger.Deduct(context.Background(), nil, id, 2))
	stock, inStock := productStock(t, db, id)
	assert.Equal(t, 3, stock)
	assert.True(t, inStock)

	require.NoError(t, ledger.Deduct(context.Background(), nil, id, 3))
	stock, inStock = productStock(t, db, id)
	assert.Equal(t, 0, stock)
	assert.False(t, inStock)
}

func TestLedgerDeduct_floorsAtZero(t *testing.T) {
	db := setupInventoryTestDB(t)
	ledger, err := NewLedger(db, testLogger())
	require.NoError(t, err)

	id := seedProduct(t, db, 2)

	require.NoError(t, ledger.Deduct(context.Background(), nil, id, 10))
	stock, inStock := productStock(t, db, id)
	assert.Equal(t, 0, stock)
	assert.False(t, inStock)
}

func TestLedgerDeduct_missingProduct(t *testing.T) {
	db := setupInventoryTestDB(t)
	ledger, err := NewLedger(db, testLogger())
	require.NoError(t, err)

	err = ledger.Deduct(context.Background(), nil, uuid.New(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestLedgerDeduct_rejectsNonPositiveQty(t *testing.T) {
	db := setupInventoryTestDB(t)
	ledger, err := NewLedger(db, testLogger())
	require.NoError(t, err)

	id := seedProduct(t, db, 5)

	err = ledger.Deduct(context.Background(), nil, id, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = ledger.Deduct(context.Background(), nil, id, -1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	stock, _ := productStock(t, db, id)
	assert.Equal(t, 5, stock)
}

func TestLedgerRestore(t *testing.T) {
	db := setupInventoryTestDB(t)
	ledger, err := NewLedger(db, testLogger())
	require.NoError(t, err)

	id := seedProduct(t, db, 0)

	require.NoError(t, ledger.Restore(context.Background(), nil, id, 4))
	stock, inStock := productStock(t, db, id)
	assert.Equal(t, 4, stock)
	assert.True(t, inStock)
}

func TestLedgerRestore_missingProductIsSkipped(t *testing.T) {
	db := setupInventoryTestDB(t)
	ledger, err := NewLedger(db, testLogger())
	require.NoError(t, err)

	// Product deleted after the order shipped; restore is a no-op.
	require.NoError(t, ledger.Restore(context.Background(), nil, uuid.New(), 2))
}

func TestLedgerDeduct_withinTransaction(t *testing.T) {
	db := setupInventoryTestDB(t)
	ledger, err := NewLedger(db, testLogger())
	require.NoError(t, err)

	id := seedProduct(t, db, 5)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := ledger.Deduct(context.Background(), tx, id, 3); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	// Rolled back with the failed transaction.
	stock, _ := productStock(t, db, id)
	assert.Equal(t, 5, stock)
}
