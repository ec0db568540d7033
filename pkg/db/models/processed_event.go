package models

import "time"

// ProcessedEvent is the idempotency ledger: one row per successfully
// handled inbound payment-event id. The row is inserted in the same
// transaction as the guarded effect, so a committed row always means the
// effect committed too. Insert-only; never updated or deleted.
type ProcessedEvent struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type;not null"`
	ProcessedAt time.Time `gorm:"column:processed_at;autoCreateTime"`
}
