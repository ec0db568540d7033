package loyalty

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
)

// Accumulator maintains each user's lifetime spend as an atomic per-key
// counter. Deltas are applied in a single guarded UPDATE and the total is
// floored at zero, so over-reversal cannot drive it negative.
type Accumulator struct {
	db *gorm.DB
}

// NewAccumulator builds a spend accumulator bound to the provided DB.
func NewAccumulator(db *gorm.DB) (*Accumulator, error) {
	if db == nil {
		return nil, fmt.Errorf("spend accumulator requires a database")
	}
	return &Accumulator{db: db}, nil
}

// Apply adds deltaCents (which may be negative) to the user's lifetime
// spend.
func (a *Accumulator) Apply(ctx context.Context, tx *gorm.DB, userID uuid.UUID, deltaCents int64) error {
	if deltaCents == 0 {
		return nil
	}
	conn := a.db
	if tx != nil {
		conn = tx
	}
	res := conn.WithContext(ctx).Exec(`
		UPDATE users
		SET lifetime_spend_cents = CASE
				WHEN lifetime_spend_cents + ? < 0 THEN 0
				ELSE lifetime_spend_cents + ?
			END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, deltaCents, deltaCents, userID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "apply spend delta")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found").
			WithDetails(map[string]any{"user_id": userID})
	}
	return nil
}
