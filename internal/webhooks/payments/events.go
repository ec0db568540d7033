package paymentwebhook

import (
	"github.com/google/uuid"

	"github.com/stitchfield/stitchfield-backend/internal/orders"
	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	"github.com/stitchfield/stitchfield-backend/pkg/types"
)

// PaymentEvent is the envelope delivered by the payment gateway.
type PaymentEvent struct {
	EventID string           `json:"event_id"`
	Type    string           `json:"type"`
	Data    PaymentEventData `json:"data"`
}

type PaymentEventData struct {
	Type   string             `json:"type"`
	ID     string             `json:"id"`
	Object PaymentEventObject `json:"object"`
}

type PaymentEventObject struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payment *PaymentPayload `json:"payment,omitempty"`
	Refund  *RefundPayload  `json:"refund,omitempty"`
}

// RefundPayload describes a refund the provider executed on its own, for
// example a dispute settled from the gateway dashboard.
type RefundPayload struct {
	SessionID   string `json:"session_id"`
	RefundID    string `json:"refund_id"`
	AmountCents int64  `json:"amount_cents"`
}

// PaymentPayload is the paid checkout session snapshot the gateway
// attaches to payment.succeeded events.
type PaymentPayload struct {
	SessionID       string         `json:"session_id"`
	PaymentID       string         `json:"payment_id"`
	UserID          *uuid.UUID     `json:"user_id,omitempty"`
	CouponCode      *string        `json:"coupon_code,omitempty"`
	Currency        string         `json:"currency"`
	TotalCents      int64          `json:"total_cents"`
	ShippingAddress *types.Address `json:"shipping_address,omitempty"`
	Lines           []PaymentLine  `json:"lines"`
}

type PaymentLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantKey     string    `json:"variant_key"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
}

func (p *PaymentPayload) toMaterializeInput() orders.MaterializeInput {
	lines := make([]orders.MaterializeLine, len(p.Lines))
	for i, line := range p.Lines {
		lines[i] = orders.MaterializeLine{
			ProductID:      line.ProductID,
			VariantKey:     line.VariantKey,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Qty:            line.Qty,
		}
	}
	return orders.MaterializeInput{
		SessionID:       p.SessionID,
		PaymentIntentID: p.PaymentID,
		UserID:          p.UserID,
		CouponCode:      p.CouponCode,
		Currency:        enums.Currency(p.Currency),
		TotalCents:      p.TotalCents,
		ShippingAddress: p.ShippingAddress,
		Lines:           lines,
	}
}
