package orders

import (
	"github.com/google/uuid"

	"github.com/stitchfield/stitchfield-backend/pkg/db/models"
	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
	"github.com/stitchfield/stitchfield-backend/pkg/types"
)

// MaterializeLine is one purchased line carried by the payment event.
type MaterializeLine struct {
	ProductID      uuid.UUID
	VariantKey     string
	Name           string
	UnitPriceCents int64
	Qty            int
}

// MaterializeInput is everything needed to turn a paid checkout session
// into a durable order. SessionID doubles as the order's primary key.
type MaterializeInput struct {
	SessionID       string
	PaymentIntentID string
	UserID          *uuid.UUID
	CouponCode      *string
	Currency        enums.Currency
	TotalCents      int64
	ShippingAddress *types.Address
	Lines           []MaterializeLine
}

// Validate checks the input before any write happens.
func (in MaterializeInput) Validate() error {
	if in.SessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id required")
	}
	if in.PaymentIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	if in.TotalCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order total cannot be negative")
	}
	if len(in.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one line")
	}
	for _, line := range in.Lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line product id required")
		}
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if line.UnitPriceCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line unit price cannot be negative")
		}
	}
	return nil
}

// MaterializeResult reports whether this call created the order or found
// it already materialized.
type MaterializeResult struct {
	Created bool
	Order   *models.Order
}
