package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog listing. StockQty and InStock form the inventory
// record: both are mutated only by the inventory ledger's guarded update,
// never overwritten by read-path code.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU        string    `gorm:"column:sku;not null;uniqueIndex"`
	Title      string    `gorm:"column:title;not null"`
	Category   string    `gorm:"column:category;not null"`
	PriceCents int64     `gorm:"column:price_cents;not null"`
	StockQty   int       `gorm:"column:stock_qty;not null;default:0"`
	InStock    bool      `gorm:"column:in_stock;not null;default:false"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
