package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	"github.com/stitchfield/stitchfield-backend/pkg/types"
)

// Order is the durable record materialized from a payment-succeeded event.
// Its primary key is the checkout session identifier (the fulfillment key),
// never system-generated, so re-processing the same session is a no-op by
// construction.
type Order struct {
	ID              string                  `gorm:"column:id;primaryKey"`
	UserID          *uuid.UUID              `gorm:"column:user_id;type:uuid"`
	CouponCode      *string                 `gorm:"column:coupon_code"`
	Currency        enums.Currency          `gorm:"column:currency;type:text;not null;default:'USD'"`
	TotalCents      int64                   `gorm:"column:total_cents;not null"`
	RefundedCents   int64                   `gorm:"column:refunded_cents;not null;default:0"`
	ShippingAddress *types.Address          `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentStatus   enums.PaymentStatus     `gorm:"column:payment_status;type:text;not null;default:'paid'"`
	Status          enums.FulfillmentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	RefundStatus    enums.RefundStatus      `gorm:"column:refund_status;type:text;not null;default:'none'"`
	PaymentIntentID string                  `gorm:"column:payment_intent_id;not null"`
	DeliveredAt     *time.Time              `gorm:"column:delivered_at"`
	Items           []OrderLineItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
