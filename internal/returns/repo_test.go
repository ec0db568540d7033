package returns

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stitchfield/stitchfield-backend/pkg/db/models"
	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
)

func setupReturnsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	returnRequests := `
CREATE TABLE IF NOT EXISTS return_requests (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'requested',
  refund_amount_cents INTEGER,
  label_ref TEXT,
  tracking_number TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	returnItems := `
CREATE TABLE IF NOT EXISTS return_items (
  id TEXT PRIMARY KEY,
  return_request_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_key TEXT NOT NULL,
  qty INTEGER NOT NULL,
  reason TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	lineItems := `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_key TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  returned_qty INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(returnRequests).Error)
	require.NoError(t, db.Exec(returnItems).Error)
	require.NoError(t, db.Exec(lineItems).Error)
	return db
}

func seedReturn(t *testing.T, db *gorm.DB, status enums.ReturnStatus) *models.ReturnRequest {
	t.Helper()

	ret := &models.ReturnRequest{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		OrderID: "sess_" + uuid.NewString()[:8],
		Status:  status,
		Items: []models.ReturnItem{
			{ID: uuid.New(), ProductID: uuid.New(), VariantKey: "M/blue", Qty: 1, Reason: enums.ReturnReasonWrongSize, UnitPriceCents: 4500},
		},
	}
	require.NoError(t, db.Create(ret).Error)
	return ret
}

func seedLine(t *testing.T, db *gorm.DB, orderID string, qty, returned int) (uuid.UUID, string) {
	t.Helper()

	productID := uuid.New()
	variantKey := "M/blue"
	require.NoError(t, db.Exec(
		`INSERT INTO order_line_items (id, order_id, product_id, variant_key, name, unit_price_cents, qty, total_cents, returned_qty)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New(), orderID, productID, variantKey, "Oxford Shirt", 4500, qty, int64(qty)*4500, returned,
	).Error)
	return productID, variantKey
}

func lineReturnedQty(t *testing.T, db *gorm.DB, orderID string, productID uuid.UUID) int {
	t.Helper()

	var returned int
	require.NoError(t, db.Raw(
		`SELECT returned_qty FROM order_line_items WHERE order_id = ? AND product_id = ?`,
		orderID, productID,
	).Scan(&returned).Error)
	return returned
}

func TestRepositoryTransition(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)

	ret := seedReturn(t, db, enums.ReturnStatusRequested)

	err := repo.Transition(context.Background(), ret.ID, enums.ReturnStatusRequested, enums.ReturnStatusApproved, nil)
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), ret.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusApproved, found.Status)

	// Re-claiming the consumed edge fails with a state conflict.
	err = repo.Transition(context.Background(), ret.ID, enums.ReturnStatusRequested, enums.ReturnStatusApproved, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestRepositoryTransition_carriesUpdates(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)

	ret := seedReturn(t, db, enums.ReturnStatusApproved)

	err := repo.Transition(context.Background(), ret.ID, enums.ReturnStatusApproved, enums.ReturnStatusLabelSent, map[string]any{
		"label_ref": "lbl_123",
	})
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), ret.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusLabelSent, found.Status)
	require.NotNil(t, found.LabelRef)
	assert.Equal(t, "lbl_123", *found.LabelRef)
}

func TestRepositoryTransition_missingReturn(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)

	err := repo.Transition(context.Background(), uuid.New(), enums.ReturnStatusRequested, enums.ReturnStatusApproved, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryReserveLineQty(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)

	orderID := "sess_" + uuid.NewString()[:8]
	productID, variantKey := seedLine(t, db, orderID, 2, 0)

	require.NoError(t, repo.ReserveLineQty(context.Background(), orderID, productID, variantKey, 1))
	assert.Equal(t, 1, lineReturnedQty(t, db, orderID, productID))

	require.NoError(t, repo.ReserveLineQty(context.Background(), orderID, productID, variantKey, 1))
	assert.Equal(t, 2, lineReturnedQty(t, db, orderID, productID))

	// The line is fully returned; another unit exceeds the ceiling.
	err := repo.ReserveLineQty(context.Background(), orderID, productID, variantKey, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 2, lineReturnedQty(t, db, orderID, productID))
}

func TestRepositoryReleaseLineQty(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)

	orderID := "sess_" + uuid.NewString()[:8]
	productID, variantKey := seedLine(t, db, orderID, 3, 2)

	require.NoError(t, repo.ReleaseLineQty(context.Background(), orderID, productID, variantKey, 2))
	assert.Equal(t, 0, lineReturnedQty(t, db, orderID, productID))

	// Releasing more than reserved floors at zero.
	require.NoError(t, repo.ReleaseLineQty(context.Background(), orderID, productID, variantKey, 5))
	assert.Equal(t, 0, lineReturnedQty(t, db, orderID, productID))
}

func TestRepositoryListByUser(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)

	ret := seedReturn(t, db, enums.ReturnStatusRequested)
	seedReturn(t, db, enums.ReturnStatusRequested) // other user

	list, err := repo.ListByUser(context.Background(), ret.UserID, 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ret.ID, list[0].ID)
	require.Len(t, list[0].Items, 1)
}

func TestRepositoryListByUser_limitBoundsQuery(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		ret := seedReturn(t, db, enums.ReturnStatusRequested)
		require.NoError(t, db.Exec(`UPDATE return_requests SET user_id = ? WHERE id = ?`, userID, ret.ID).Error)
	}

	list, err := repo.ListByUser(context.Background(), userID, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
