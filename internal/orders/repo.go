package orders

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stitchfield/stitchfield-backend/pkg/db/models"
	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
)

// Repository persists orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIfAbsent(ctx context.Context, order *models.Order) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status enums.FulfillmentStatus) error
	ApplyRefund(ctx context.Context, id string, amountCents int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed orders repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateIfAbsent inserts the order keyed by its checkout session id. The
// insert is conditional on the primary key, so exactly one of any number
// of concurrent attempts wins; the rest observe created=false and write
// nothing. Line items are only inserted by the winner.
func (r *repository) CreateIfAbsent(ctx context.Context, order *models.Order) (bool, error) {
	res := r.db.WithContext(ctx).
		Omit("Items").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(order)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "create order")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	if len(order.Items) > 0 {
		if err := r.db.WithContext(ctx).Create(&order.Items).Error; err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line items")
		}
	}
	return true, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
			WithDetails(map[string]any{"order_id": id})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order")
	}
	return &order, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, status enums.FulfillmentStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update order status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
			WithDetails(map[string]any{"order_id": id})
	}
	return nil
}

// ApplyRefund adds amountCents to the order's refunded total and derives
// the refund, payment and fulfillment statuses in the same guarded
// UPDATE. A refund that covers the full total cancels the order; the
// guard rejects a refund that would push refunded past the total.
func (r *repository) ApplyRefund(ctx context.Context, id string, amountCents int64) error {
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET refunded_cents = refunded_cents + ?,
			refund_status = CASE WHEN refunded_cents + ? >= total_cents THEN 'full' ELSE 'partial' END,
			payment_status = CASE WHEN refunded_cents + ? >= total_cents THEN 'refunded' ELSE 'partially_refunded' END,
			status = CASE WHEN refunded_cents + ? >= total_cents THEN 'cancelled' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND refunded_cents + ? <= total_cents
	`, amountCents, amountCents, amountCents, amountCents, id, amountCents)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "apply order refund")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "refund exceeds order total or order not found").
			WithDetails(map[string]any{"order_id": id, "amount_cents": amountCents})
	}
	return nil
}
