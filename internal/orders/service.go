package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stitchfield/stitchfield-backend/pkg/db/models"
	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
	"github.com/stitchfield/stitchfield-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockDeductor interface {
	Deduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type spendApplier interface {
	Apply(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deltaCents int64) error
}

type couponIncrementer interface {
	Increment(ctx context.Context, tx *gorm.DB, code string) error
}

// Service materializes paid checkout sessions into orders.
type Service interface {
	Materialize(ctx context.Context, input MaterializeInput) (*MaterializeResult, error)
	MaterializeTx(ctx context.Context, tx *gorm.DB, input MaterializeInput) (*MaterializeResult, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	stock   stockDeductor
	spend   spendApplier
	coupons couponIncrementer
	logg    *logger.Logger
}

// NewService builds the order materializer.
func NewService(
	tx txRunner,
	repo Repository,
	stock stockDeductor,
	spend spendApplier,
	coupons couponIncrementer,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock deductor required")
	}
	if spend == nil {
		return nil, fmt.Errorf("spend applier required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon incrementer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		stock:   stock,
		spend:   spend,
		coupons: coupons,
		logg:    logg,
	}, nil
}

// Materialize runs MaterializeTx in its own transaction.
func (s *service) Materialize(ctx context.Context, input MaterializeInput) (*MaterializeResult, error) {
	var result *MaterializeResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.MaterializeTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MaterializeTx creates the order for the checkout session inside the
// caller's transaction. The conditional insert on the session id is the
// exactly-once guard: side effects (stock deduction, spend accrual, coupon
// usage) run only when this call wins the insert, and they commit or roll
// back together with the order row.
func (s *service) MaterializeTx(ctx context.Context, tx *gorm.DB, input MaterializeInput) (*MaterializeResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "materialize requires a transaction")
	}

	ctx = s.logg.WithOrderID(ctx, input.SessionID)
	repo := s.repo.WithTx(tx)

	order := buildOrder(input)
	created, err := repo.CreateIfAbsent(ctx, order)
	if err != nil {
		return nil, err
	}
	if !created {
		existing, err := repo.FindByID(ctx, input.SessionID)
		if err != nil {
			return nil, err
		}
		s.logg.Info(ctx, "order already materialized, skipping side effects")
		return &MaterializeResult{Created: false, Order: existing}, nil
	}

	for _, line := range input.Lines {
		if err := s.stock.Deduct(ctx, tx, line.ProductID, line.Qty); err != nil {
			return nil, err
		}
	}

	needsReview := false
	if input.UserID != nil {
		err := s.spend.Apply(ctx, tx, *input.UserID, input.TotalCents)
		switch {
		case pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
			s.logg.Warn(ctx, "order user no longer exists, flagging for review")
			needsReview = true
		case err != nil:
			return nil, err
		}
	}

	if input.CouponCode != nil && *input.CouponCode != "" {
		err := s.coupons.Increment(ctx, tx, *input.CouponCode)
		switch {
		case pkgerrors.HasCode(err, pkgerrors.CodeNotFound),
			pkgerrors.HasCode(err, pkgerrors.CodeLimitExceeded):
			s.logg.Warn(ctx, "coupon could not be consumed, flagging order for review")
			needsReview = true
		case err != nil:
			return nil, err
		}
	}

	if needsReview {
		if err := repo.UpdateStatus(ctx, order.ID, enums.FulfillmentStatusNeedsReview); err != nil {
			return nil, err
		}
		order.Status = enums.FulfillmentStatusNeedsReview
	}

	s.logg.Info(ctx, "order materialized")
	return &MaterializeResult{Created: true, Order: order}, nil
}

func (s *service) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id required")
	}
	return s.repo.FindByID(ctx, sessionID)
}

func buildOrder(input MaterializeInput) *models.Order {
	items := make([]models.OrderLineItem, len(input.Lines))
	for i, line := range input.Lines {
		items[i] = models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        input.SessionID,
			ProductID:      line.ProductID,
			VariantKey:     line.VariantKey,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Qty:            line.Qty,
			TotalCents:     line.UnitPriceCents * int64(line.Qty),
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}

	return &models.Order{
		ID:              input.SessionID,
		UserID:          input.UserID,
		CouponCode:      input.CouponCode,
		Currency:        currency,
		TotalCents:      input.TotalCents,
		ShippingAddress: input.ShippingAddress,
		PaymentStatus:   enums.PaymentStatusPaid,
		Status:          enums.FulfillmentStatusPending,
		RefundStatus:    enums.RefundStatusNone,
		PaymentIntentID: input.PaymentIntentID,
		Items:           items,
	}
}
