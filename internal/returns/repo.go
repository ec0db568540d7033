package returns

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stitchfield/stitchfield-backend/pkg/db/models"
	"github.com/stitchfield/stitchfield-backend/pkg/enums"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
)

// Repository persists return requests and maintains the returned-quantity
// reservations on order line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ret *models.ReturnRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReturnRequest, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.ReturnStatus, updates map[string]any) error
	ReserveLineQty(ctx context.Context, orderID string, productID uuid.UUID, variantKey string, qty int) error
	ReleaseLineQty(ctx context.Context, orderID string, productID uuid.UUID, variantKey string, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed returns repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ret *models.ReturnRequest) error {
	if err := r.db.WithContext(ctx).Create(ret).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var ret models.ReturnRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&ret, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found").
			WithDetails(map[string]any{"return_id": id})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find return request")
	}
	return &ret, nil
}

// ListByUser returns the user's returns newest first, bounded to limit
// rows in the query itself.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReturnRequest, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rets []models.ReturnRequest
	if err := q.Find(&rets).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list return requests")
	}
	return rets, nil
}

// Transition moves the return from one status to another with a conditional
// UPDATE. The WHERE clause on the current status makes the edge claimable
// exactly once; a concurrent writer that lost the race matches zero rows.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.ReturnStatus, updates map[string]any) error {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}

	res := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "transition return request")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "return is no longer in the expected state").
		WithDetails(map[string]any{
			"return_id": id,
			"expected":  from,
			"actual":    current.Status,
			"target":    to,
		})
}

// ReserveLineQty claims qty units of a line item for this return. The
// ceiling on ordered quantity is enforced by the statement itself, so
// overlapping partial returns cannot over-return a line.
func (r *repository) ReserveLineQty(ctx context.Context, orderID string, productID uuid.UUID, variantKey string, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "return quantity must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE order_line_items
		SET returned_qty = returned_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE order_id = ? AND product_id = ? AND variant_key = ?
			AND returned_qty + ? <= qty
	`, qty, orderID, productID, variantKey, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve return quantity")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "return quantity exceeds remaining returnable quantity").
			WithDetails(map[string]any{
				"order_id":    orderID,
				"product_id":  productID,
				"variant_key": variantKey,
				"qty":         qty,
			})
	}
	return nil
}

// ReleaseLineQty gives reserved quantity back when a return is cancelled
// or rejected.
func (r *repository) ReleaseLineQty(ctx context.Context, orderID string, productID uuid.UUID, variantKey string, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE order_line_items
		SET returned_qty = CASE WHEN returned_qty - ? < 0 THEN 0 ELSE returned_qty - ? END,
			updated_at = CURRENT_TIMESTAMP
		WHERE order_id = ? AND product_id = ? AND variant_key = ?
	`, qty, qty, orderID, productID, variantKey)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release return quantity")
	}
	return nil
}
