package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stitchfield/stitchfield-backend/pkg/enums"
)

// User is the storefront account. LifetimeSpendCents is the loyalty spend
// accumulator, mutated only through signed deltas.
type User struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email              string         `gorm:"type:text;not null;uniqueIndex"`
	FirstName          string         `gorm:"column:first_name;not null"`
	LastName           string         `gorm:"column:last_name;not null"`
	Role               enums.UserRole `gorm:"column:role;type:text;not null;default:'customer'"`
	LifetimeSpendCents int64          `gorm:"column:lifetime_spend_cents;not null;default:0"`
	IsActive           bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
