package coupons

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/stitchfield/stitchfield-backend/pkg/db/models"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
)

// Counter increments coupon usage under its ceiling. The ceiling check and
// the write are one conditional UPDATE; two concurrent increments can never
// both slip past the limit, because the losing statement matches zero rows.
type Counter struct {
	db *gorm.DB
}

// NewCounter builds a coupon usage counter bound to the provided DB.
func NewCounter(db *gorm.DB) (*Counter, error) {
	if db == nil {
		return nil, fmt.Errorf("coupon counter requires a database")
	}
	return &Counter{db: db}, nil
}

// Increment consumes one use of the coupon identified by code.
func (c *Counter) Increment(ctx context.Context, tx *gorm.DB, code string) error {
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	conn := c.db
	if tx != nil {
		conn = tx
	}

	res := conn.WithContext(ctx).Exec(`
		UPDATE user_coupons
		SET used_count = used_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE code = ? AND used_count < max_uses
	`, code)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment coupon usage")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Zero rows means either the coupon is unknown or the ceiling is hit;
	// a follow-up read on the same connection tells them apart.
	var coupon models.UserCoupon
	err := conn.WithContext(ctx).First(&coupon, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found").
			WithDetails(map[string]any{"code": code})
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return pkgerrors.New(pkgerrors.CodeLimitExceeded, "coupon usage limit reached").
		WithDetails(map[string]any{"code": code, "max_uses": coupon.MaxUses})
}
