package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Account is the principal identity. Rows are created on first sign-in and
// never deleted.
type Account struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Subject        string         `gorm:"column:subject;not null;uniqueIndex"`
	Email          string         `gorm:"column:email;not null"`
	DisplayName    string         `gorm:"column:display_name;not null"`
	IsAdmin        bool           `gorm:"column:is_admin;not null;default:false"`
	PaymentMethods pq.StringArray `gorm:"column:payment_methods;type:text[]"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
