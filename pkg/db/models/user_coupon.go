package models

import (
	"time"

	"github.com/google/uuid"
)

// UserCoupon is a coupon grant with a usage ceiling. UsedCount never
// exceeds MaxUses; the invariant is enforced by the counter's conditional
// increment, not by post-hoc validation. A nil UserID marks a site-wide
// coupon.
type UserCoupon struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string     `gorm:"column:code;not null;uniqueIndex"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid"`
	UsedCount int        `gorm:"column:used_count;not null;default:0"`
	MaxUses   int        `gorm:"column:max_uses;not null;default:1"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
