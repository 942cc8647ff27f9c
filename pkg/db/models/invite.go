package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Invite is a redeemable code bound to a profile and a permission set.
// Redemption is idempotent-once: it consumes the code and upserts a Share.
type Invite struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                string         `gorm:"column:code;not null;uniqueIndex"`
	ProfileID           uuid.UUID      `gorm:"column:profile_id;type:uuid;not null;index"`
	Permissions         pq.StringArray `gorm:"column:permissions;type:text[];not null"`
	CreatedByAccountID  uuid.UUID      `gorm:"column:created_by_account_id;type:uuid;not null"`
	ExpiresAt           time.Time      `gorm:"column:expires_at;not null"`
	RedeemedAt          *time.Time     `gorm:"column:redeemed_at"`
	RedeemedByAccountID *uuid.UUID     `gorm:"column:redeemed_by_account_id;type:uuid"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
}
