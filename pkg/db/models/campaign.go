package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Campaign is a sales window belonging to exactly one profile and bound to one
// catalog. Aggregate totals are derived from orders, never written by clients.
type Campaign struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID   uuid.UUID       `gorm:"column:profile_id;type:uuid;not null;index"`
	CatalogID   uuid.UUID       `gorm:"column:catalog_id;type:uuid;not null"`
	Name        string          `gorm:"column:name;not null"`
	StartDate   *time.Time      `gorm:"column:start_date"`
	EndDate     *time.Time      `gorm:"column:end_date"`
	OrderCount  int             `gorm:"column:order_count;not null;default:0"`
	TotalRaised decimal.Decimal `gorm:"column:total_raised;type:numeric(12,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
