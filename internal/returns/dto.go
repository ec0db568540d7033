package returns

import (
	"github.com/google/uuid"

	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
)

// ReturnItemInput is one line the customer wants to send back.
type ReturnItemInput struct {
	ProductID  uuid.UUID          `json:"product_id"`
	VariantKey string             `json:"variant_key"`
	Qty        int                `json:"qty"`
	Reason     enums.ReturnReason `json:"reason"`
}

// CreateReturnInput opens a return request against a delivered order.
type CreateReturnInput struct {
	UserID  uuid.UUID
	OrderID string
	Items   []ReturnItemInput
}

// Validate checks the request shape; order-dependent checks happen in the
// service transaction.
func (in CreateReturnInput) Validate() error {
	if in.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if in.OrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(in.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "return must contain at least one item")
	}
	for _, item := range in.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if !item.Reason.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown return reason").
				WithDetails(map[string]any{"reason": item.Reason})
		}
	}
	return nil
}

// TransitionInput moves a return along one edge of its state machine.
// LabelRef is required when the target is label_sent, TrackingNumber when
// the target is in_transit.
type TransitionInput struct {
	Target         enums.ReturnStatus
	LabelRef       *string
	TrackingNumber *string
}
