package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Share grants one target account a permission set on one profile. Absence of
// a row is equivalent to no access; revocation deletes the row.
type Share struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID       uuid.UUID      `gorm:"column:profile_id;type:uuid;not null;uniqueIndex:idx_shares_profile_target"`
	TargetAccountID uuid.UUID      `gorm:"column:target_account_id;type:uuid;not null;uniqueIndex:idx_shares_profile_target"`
	Permissions     pq.StringArray `gorm:"column:permissions;type:text[];not null"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
