package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order belongs to exactly one campaign. Line items and TotalAmount are always
// recomputed server-side from the campaign's catalog; client-submitted money
// values are ignored.
type Order struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID    uuid.UUID       `gorm:"column:campaign_id;type:uuid;not null;index"`
	CustomerName  string          `gorm:"column:customer_name;not null"`
	CustomerPhone *string         `gorm:"column:customer_phone"`
	CustomerEmail *string         `gorm:"column:customer_email"`
	Notes         *string         `gorm:"column:notes"`
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	LineItems     []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
