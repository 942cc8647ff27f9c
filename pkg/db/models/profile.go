package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a sellable identity. Ownership is a plain field on the row, not a
// separate grant record; the owner always has full access.
type Profile struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerAccountID uuid.UUID `gorm:"column:owner_account_id;type:uuid;not null;index"`
	SellerName     string    `gorm:"column:seller_name;not null"`
	UnitType       *string   `gorm:"column:unit_type"`
	UnitNumber     *int      `gorm:"column:unit_number"`
	City           *string   `gorm:"column:city"`
	State          *string   `gorm:"column:state"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
