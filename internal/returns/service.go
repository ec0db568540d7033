package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stitchfield/stitchfield-backend/internal/orders"
	"github.com/stitchfield/stitchfield-backend/pkg/db/models"
	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
	"github.com/stitchfield/stitchfield-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type refundExecutor interface {
	Execute(ctx context.Context, returnID uuid.UUID) error
}

// Service manages the return workflow from request through refund.
type Service interface {
	Create(ctx context.Context, input CreateReturnInput) (*models.ReturnRequest, error)
	Get(ctx context.Context, returnID uuid.UUID) (*models.ReturnRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReturnRequest, error)
	Transition(ctx context.Context, returnID uuid.UUID, input TransitionInput) (*models.ReturnRequest, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	ordersRepo orders.Repository
	refunder   refundExecutor
	window     time.Duration
	now        func() time.Time
	logg       *logger.Logger
}

// NewService builds the returns service. window bounds how long after
// delivery a return may be opened.
func NewService(
	tx txRunner,
	repo Repository,
	ordersRepo orders.Repository,
	refunder refundExecutor,
	window time.Duration,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if refunder == nil {
		return nil, fmt.Errorf("refund executor required")
	}
	if window <= 0 {
		return nil, fmt.Errorf("return window must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		repo:       repo,
		ordersRepo: ordersRepo,
		refunder:   refunder,
		window:     window,
		now:        time.Now,
		logg:       logg,
	}, nil
}

// Create validates eligibility and opens the return in requested state.
// Quantity is reserved against each order line inside the transaction, so
// a second overlapping return for the same line can only claim what is
// left.
func (s *service) Create(ctx context.Context, input CreateReturnInput) (*models.ReturnRequest, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, input.OrderID)

	var created *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.ordersRepo.WithTx(tx).FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}

		if order.UserID == nil || *order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to this user")
		}
		if order.PaymentStatus != enums.PaymentStatusPaid &&
			order.PaymentStatus != enums.PaymentStatusPartiallyRefunded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not eligible for returns").
				WithDetails(map[string]any{"payment_status": order.PaymentStatus})
		}

		if order.DeliveredAt == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been delivered").
				WithDetails(map[string]any{"status": order.Status})
		}
		if s.now().Sub(*order.DeliveredAt) > s.window {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return window has elapsed").
				WithDetails(map[string]any{"window": s.window.String()})
		}

		items := make([]models.ReturnItem, len(input.Items))
		for i, item := range input.Items {
			line := matchLine(order.Items, item.ProductID, item.VariantKey)
			if line == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "item was not part of the order").
					WithDetails(map[string]any{
						"product_id":  item.ProductID,
						"variant_key": item.VariantKey,
					})
			}
			if err := repo.ReserveLineQty(ctx, order.ID, item.ProductID, item.VariantKey, item.Qty); err != nil {
				return err
			}
			items[i] = models.ReturnItem{
				ID:             uuid.New(),
				ProductID:      item.ProductID,
				VariantKey:     item.VariantKey,
				Qty:            item.Qty,
				Reason:         item.Reason,
				UnitPriceCents: line.UnitPriceCents,
			}
		}

		ret := &models.ReturnRequest{
			ID:      uuid.New(),
			UserID:  input.UserID,
			OrderID: order.ID,
			Status:  enums.ReturnStatusRequested,
			Items:   items,
		}
		if err := repo.Create(ctx, ret); err != nil {
			return err
		}
		created = ret
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "return request opened")
	return created, nil
}

func (s *service) Get(ctx context.Context, returnID uuid.UUID) (*models.ReturnRequest, error) {
	if returnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	return s.repo.FindByID(ctx, returnID)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReturnRequest, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// Transition moves the return one edge forward. The received -> refunded
// edge is owned by the refund orchestrator so the provider call and the
// ledger updates stay atomic.
func (s *service) Transition(ctx context.Context, returnID uuid.UUID, input TransitionInput) (*models.ReturnRequest, error) {
	if returnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown return status").
			WithDetails(map[string]any{"target": input.Target})
	}

	ret, err := s.repo.FindByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"return_id": returnID,
		"from":      ret.Status,
		"target":    input.Target,
	})

	if !ret.Status.CanTransitionTo(input.Target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transition not permitted").
			WithDetails(map[string]any{"from": ret.Status, "target": input.Target})
	}

	if input.Target == enums.ReturnStatusRefunded {
		if err := s.refunder.Execute(ctx, returnID); err != nil {
			return nil, err
		}
		s.logg.Info(ctx, "return refunded")
		return s.repo.FindByID(ctx, returnID)
	}

	updates, err := transitionUpdates(input)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Transition(ctx, returnID, ret.Status, input.Target, updates); err != nil {
			return err
		}
		if input.Target == enums.ReturnStatusCancelled || input.Target == enums.ReturnStatusRejected {
			// Give the reserved quantity back so the lines can be
			// returned again later.
			for _, item := range ret.Items {
				if err := repo.ReleaseLineQty(ctx, ret.OrderID, item.ProductID, item.VariantKey, item.Qty); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "return transitioned")
	return s.repo.FindByID(ctx, returnID)
}

func transitionUpdates(input TransitionInput) (map[string]any, error) {
	updates := map[string]any{}
	switch input.Target {
	case enums.ReturnStatusLabelSent:
		if input.LabelRef == nil || *input.LabelRef == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "label reference required for label_sent")
		}
		updates["label_ref"] = *input.LabelRef
	case enums.ReturnStatusInTransit:
		if input.TrackingNumber == nil || *input.TrackingNumber == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required for in_transit")
		}
		updates["tracking_number"] = *input.TrackingNumber
	}
	return updates, nil
}

func matchLine(items []models.OrderLineItem, productID uuid.UUID, variantKey string) *models.OrderLineItem {
	for i := range items {
		if items[i].ProductID == productID && items[i].VariantKey == variantKey {
			return &items[i]
		}
	}
	return nil
}
