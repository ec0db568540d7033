package orders

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

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  coupon_code TEXT,
  currency TEXT NOT NULL DEFAULT 'USD',
  total_cents INTEGER NOT NULL,
  refunded_cents INTEGER NOT NULL DEFAULT 0,
  shipping_address TEXT,
  payment_status TEXT NOT NULL DEFAULT 'paid',
  status TEXT NOT NULL DEFAULT 'pending',
  refund_status TEXT NOT NULL DEFAULT 'none',
  payment_intent_id TEXT NOT NULL,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
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
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(lineItems).Error)
	return db
}

func testOrder(sessionID string, totalCents int64) *models.Order {
	return &models.Order{
		ID:              sessionID,
		Currency:        enums.CurrencyUSD,
		TotalCents:      totalCents,
		PaymentStatus:   enums.PaymentStatusPaid,
		Status:          enums.FulfillmentStatusPending,
		RefundStatus:    enums.RefundStatusNone,
		PaymentIntentID: "pay_" + sessionID,
		Items: []models.OrderLineItem{
			{
				ID:             uuid.New(),
				ProductID:      uuid.New(),
				VariantKey:     "M/blue",
				Name:           "Oxford Shirt",
				UnitPriceCents: totalCents,
				Qty:            1,
				TotalCents:     totalCents,
			},
		},
	}
}

func TestRepositoryCreateIfAbsent(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	sessionID := "sess_" + uuid.NewString()[:8]
	created, err := repo.CreateIfAbsent(context.Background(), testOrder(sessionID, 9000))
	require.NoError(t, err)
	assert.True(t, created)

	// Second attempt for the same session loses the conditional insert.
	created, err = repo.CreateIfAbsent(context.Background(), testOrder(sessionID, 9000))
	require.NoError(t, err)
	assert.False(t, created)

	found, err := repo.FindByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, found.ID)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Oxford Shirt", found.Items[0].Name)

	// Loser must not have duplicated line items.
	var count int64
	require.NoError(t, db.Model(&models.OrderLineItem{}).Where("order_id = ?", sessionID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRepositoryFindByID_notFound(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), "sess_missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryUpdateStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	sessionID := "sess_" + uuid.NewString()[:8]
	_, err := repo.CreateIfAbsent(context.Background(), testOrder(sessionID, 5000))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(context.Background(), sessionID, enums.FulfillmentStatusNeedsReview))

	found, err := repo.FindByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentStatusNeedsReview, found.Status)

	err = repo.UpdateStatus(context.Background(), "sess_missing", enums.FulfillmentStatusShipped)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryApplyRefund(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	sessionID := "sess_" + uuid.NewString()[:8]
	_, err := repo.CreateIfAbsent(context.Background(), testOrder(sessionID, 10000))
	require.NoError(t, err)

	// Partial refund leaves fulfillment alone.
	require.NoError(t, repo.ApplyRefund(context.Background(), sessionID, 4000))
	found, err := repo.FindByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), found.RefundedCents)
	assert.Equal(t, enums.RefundStatusPartial, found.RefundStatus)
	assert.Equal(t, enums.PaymentStatusPartiallyRefunded, found.PaymentStatus)
	assert.Equal(t, enums.FulfillmentStatusPending, found.Status)

	// Refunding the remainder cancels the order.
	require.NoError(t, repo.ApplyRefund(context.Background(), sessionID, 6000))
	found, err = repo.FindByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), found.RefundedCents)
	assert.Equal(t, enums.RefundStatusFull, found.RefundStatus)
	assert.Equal(t, enums.PaymentStatusRefunded, found.PaymentStatus)
	assert.Equal(t, enums.FulfillmentStatusCancelled, found.Status)

	// Anything further exceeds the total and is rejected.
	err = repo.ApplyRefund(context.Background(), sessionID, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestRepositoryApplyRefund_fullRefundCancelsOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	sessionID := "sess_" + uuid.NewString()[:8]
	_, err := repo.CreateIfAbsent(context.Background(), testOrder(sessionID, 14000))
	require.NoError(t, err)

	require.NoError(t, repo.ApplyRefund(context.Background(), sessionID, 14000))

	found, err := repo.FindByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusFull, found.RefundStatus)
	assert.Equal(t, enums.FulfillmentStatusCancelled, found.Status)
}

func TestRepositoryApplyRefund_rejectsNonPositive(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	err := repo.ApplyRefund(context.Background(), "sess_any", 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
