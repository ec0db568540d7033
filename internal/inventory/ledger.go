package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
	"github.com/stitchfield/stitchfield-backend/pkg/logger"
)

// Ledger mutates a product's stock count through bounded signed deltas.
// Every mutation is a single guarded UPDATE, so concurrent writers for the
// same product cannot lose updates or race the count below zero; the
// statement is the only synchronization mechanism.
type Ledger struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewLedger builds an inventory ledger bound to the provided DB.
func NewLedger(db *gorm.DB, logg *logger.Logger) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("inventory ledger requires a database")
	}
	return &Ledger{db: db, logg: logg}, nil
}

// Deduct removes qty units of stock for the product. A missing product is
// an error: an order must not be materialized against a product that does
// not exist.
func (l *Ledger) Deduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "deduct quantity must be positive")
	}
	rows, err := l.apply(ctx, tx, productID, -qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct inventory")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	return nil
}

// Restore returns qty units of stock to the product. A vanished product is
// logged and skipped: a deleted listing cannot be restocked, and the order
// quantities still matter for audit.
func (l *Ledger) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "restore quantity must be positive")
	}
	rows, err := l.apply(ctx, tx, productID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore inventory")
	}
	if rows == 0 && l.logg != nil {
		ctx = l.logg.WithFields(ctx, map[string]any{"product_id": productID, "qty": qty})
		l.logg.Warn(ctx, "inventory.restore skipped, product no longer exists")
	}
	return nil
}

func (l *Ledger) apply(ctx context.Context, tx *gorm.DB, productID uuid.UUID, delta int) (int64, error) {
	conn := l.db
	if tx != nil {
		conn = tx
	}
	res := conn.WithContext(ctx).Exec(`
		UPDATE products
		SET stock_qty = CASE WHEN stock_qty + ? < 0 THEN 0 ELSE stock_qty + ? END,
			in_stock = stock_qty + ? > 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, delta, delta, delta, productID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
