package models

import (
	"time"

	"github.com/google/uuid"
)

// SharedCampaignTemplate is a publishable template used to prefill campaign
// creation for many profiles in the same scouting unit. Code is globally
// unique; the unit tuple columns back the discovery lookup.
type SharedCampaignTemplate struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string    `gorm:"column:code;not null;uniqueIndex:idx_templates_code"`
	OwnerAccountID uuid.UUID `gorm:"column:owner_account_id;type:uuid;not null"`
	CatalogID      uuid.UUID `gorm:"column:catalog_id;type:uuid;not null"`
	UnitType       string    `gorm:"column:unit_type;not null;index:idx_templates_unit_tuple"`
	UnitNumber     int       `gorm:"column:unit_number;not null;index:idx_templates_unit_tuple"`
	City           string    `gorm:"column:city;not null;index:idx_templates_unit_tuple"`
	State          string    `gorm:"column:state;not null;index:idx_templates_unit_tuple"`
	CampaignName   string    `gorm:"column:campaign_name;not null;index:idx_templates_unit_tuple"`
	CampaignYear   int       `gorm:"column:campaign_year;not null;index:idx_templates_unit_tuple"`
	Active         bool      `gorm:"column:active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
