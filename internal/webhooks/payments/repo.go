package paymentwebhook

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stitchfield/stitchfield-backend/pkg/db/models"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
)

// ProcessedEventRepository is the durable idempotency ledger for inbound
// payment events.
type ProcessedEventRepository interface {
	WithTx(tx *gorm.DB) ProcessedEventRepository
	Record(ctx context.Context, eventID, eventType string) (bool, error)
}

type processedEventRepository struct {
	db *gorm.DB
}

// NewProcessedEventRepository builds the gorm-backed event ledger.
func NewProcessedEventRepository(db *gorm.DB) ProcessedEventRepository {
	return &processedEventRepository{db: db}
}

func (r *processedEventRepository) WithTx(tx *gorm.DB) ProcessedEventRepository {
	if tx == nil {
		return r
	}
	return &processedEventRepository{db: tx}
}

// Record inserts the event id if it has never been seen. It returns false
// when a prior delivery already claimed the id. Run inside the same
// transaction as the event's effect: the row and the effect then commit or
// roll back together, so a recorded id always means the effect is durable.
func (r *processedEventRepository) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	if eventID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&models.ProcessedEvent{EventID: eventID, EventType: eventType})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "record processed event")
	}
	return res.RowsAffected > 0, nil
}
