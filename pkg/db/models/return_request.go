package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stitchfield/stitchfield-backend/pkg/enums"
)

// ReturnRequest tracks a return through its state machine. Status only
// moves forward along the allowed edges; RefundAmountCents is set exactly
// once, on the received -> refunded transition.
type ReturnRequest struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID           string             `gorm:"column:order_id;not null;index"`
	Status            enums.ReturnStatus `gorm:"column:status;type:text;not null;default:'requested'"`
	RefundAmountCents *int64             `gorm:"column:refund_amount_cents"`
	LabelRef          *string            `gorm:"column:label_ref"`
	TrackingNumber    *string            `gorm:"column:tracking_number"`
	Items             []ReturnItem       `gorm:"foreignKey:ReturnRequestID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// ReturnItem is one returned line with its reason code and a unit price
// snapshot used for refund computation.
type ReturnItem struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnRequestID uuid.UUID          `gorm:"column:return_request_id;type:uuid;not null;index"`
	ProductID       uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	VariantKey      string             `gorm:"column:variant_key;not null"`
	Qty             int                `gorm:"column:qty;not null"`
	Reason          enums.ReturnReason `gorm:"column:reason;type:text;not null"`
	UnitPriceCents  int64              `gorm:"column:unit_price_cents;not null"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
}
