package refunds

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/stitchfield/stitchfield-backend/internal/orders"
	"github.com/stitchfield/stitchfield-backend/internal/returns"
	"github.com/stitchfield/stitchfield-backend/pkg/db/models"
	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
	"github.com/stitchfield/stitchfield-backend/pkg/logger"
	"github.com/stitchfield/stitchfield-backend/pkg/square"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockRestorer interface {
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type spendApplier interface {
	Apply(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deltaCents int64) error
}

type refundProvider interface {
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
	RefundPayment(ctx context.Context, params square.RefundParams) (*sq.PaymentRefund, error)
}

// Orchestrator drives the received -> refunded edge: the provider refund
// and every ledger reversal succeed together or not at all.
type Orchestrator interface {
	Execute(ctx context.Context, returnID uuid.UUID) error
}

type orchestrator struct {
	tx          txRunner
	returnsRepo returns.Repository
	ordersRepo  orders.Repository
	stock       stockRestorer
	spend       spendApplier
	provider    refundProvider
	logg        *logger.Logger
}

// NewOrchestrator builds the refund orchestrator.
func NewOrchestrator(
	tx txRunner,
	returnsRepo returns.Repository,
	ordersRepo orders.Repository,
	stock stockRestorer,
	spend spendApplier,
	provider refundProvider,
	logg *logger.Logger,
) (Orchestrator, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if returnsRepo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if spend == nil {
		return nil, fmt.Errorf("spend applier required")
	}
	if provider == nil {
		return nil, fmt.Errorf("refund provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &orchestrator{
		tx:          tx,
		returnsRepo: returnsRepo,
		ordersRepo:  ordersRepo,
		stock:       stock,
		spend:       spend,
		provider:    provider,
		logg:        logg,
	}, nil
}

// Execute refunds a received return. The conditional claim on the
// received status runs first so only one caller proceeds; the provider is
// charged before any ledger write, and a failure anywhere rolls the whole
// transaction back, leaving the return in received for a retry. The
// provider idempotency key is derived from the return id, so a retry
// after a crash cannot move money twice.
func (o *orchestrator) Execute(ctx context.Context, returnID uuid.UUID) error {
	if returnID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}

	ret, err := o.returnsRepo.FindByID(ctx, returnID)
	if err != nil {
		return err
	}
	if ret.Status != enums.ReturnStatusReceived {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only received returns can be refunded").
			WithDetails(map[string]any{"return_id": returnID, "status": ret.Status})
	}

	order, err := o.ordersRepo.FindByID(ctx, ret.OrderID)
	if err != nil {
		return err
	}
	if order.PaymentIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment reference").
			WithDetails(map[string]any{"order_id": order.ID})
	}

	amount := refundAmount(ret.Items)
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "return has no refundable amount").
			WithDetails(map[string]any{"return_id": returnID})
	}

	ctx = o.logg.WithFields(ctx, map[string]any{
		"return_id":    returnID,
		"order_id":     order.ID,
		"amount_cents": amount,
	})

	// Cross-check against what the provider actually captured before
	// moving money; stale local totals must not over-refund.
	payment, err := o.provider.GetPayment(ctx, order.PaymentIntentID)
	if err != nil {
		return err
	}
	if captured := capturedCents(payment); captured > 0 && amount > captured-order.RefundedCents {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "refund exceeds remaining captured amount").
			WithDetails(map[string]any{
				"amount_cents":   amount,
				"captured_cents": captured,
				"refunded_cents": order.RefundedCents,
			})
	}

	err = o.tx.WithTx(ctx, func(tx *gorm.DB) error {
		returnsRepo := o.returnsRepo.WithTx(tx)
		ordersRepo := o.ordersRepo.WithTx(tx)

		// Claim the edge first; a concurrent refund attempt fails here
		// without touching the provider.
		if err := returnsRepo.Transition(ctx, returnID, enums.ReturnStatusReceived, enums.ReturnStatusRefunded, map[string]any{
			"refund_amount_cents": amount,
		}); err != nil {
			return err
		}

		if _, err := o.provider.RefundPayment(ctx, square.RefundParams{
			PaymentID:      order.PaymentIntentID,
			AmountCents:    amount,
			Currency:       string(order.Currency),
			Reason:         "customer return",
			IdempotencyKey: "ret-" + returnID.String(),
		}); err != nil {
			return err
		}

		if err := ordersRepo.ApplyRefund(ctx, order.ID, amount); err != nil {
			return err
		}

		var restoreErr error
		for _, item := range ret.Items {
			restoreErr = multierr.Append(restoreErr, o.stock.Restore(ctx, tx, item.ProductID, item.Qty))
		}
		if restoreErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, restoreErr, "restore returned inventory")
		}

		if order.UserID != nil {
			err := o.spend.Apply(ctx, tx, *order.UserID, -amount)
			switch {
			case pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
				o.logg.Warn(ctx, "refund spend reversal skipped, user no longer exists")
			case err != nil:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	o.logg.Info(ctx, "refund completed")
	return nil
}

func capturedCents(payment *sq.Payment) int64 {
	if payment == nil {
		return 0
	}
	money := payment.GetAmountMoney()
	if money == nil || money.Amount == nil {
		return 0
	}
	return *money.Amount
}

func refundAmount(items []models.ReturnItem) int64 {
	var total int64
	for _, item := range items {
		total += item.UnitPriceCents * int64(item.Qty)
	}
	return total
}
