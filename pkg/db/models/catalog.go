package models

import (
	"time"

	"github.com/google/uuid"
)

// Catalog is a named collection of products, owned by an account or marked
// public and admin-managed.
type Catalog struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string     `gorm:"column:name;not null"`
	OwnerAccountID *uuid.UUID `gorm:"column:owner_account_id;type:uuid;index"`
	IsPublic       bool       `gorm:"column:is_public;not null;default:false"`
	Products       []Product  `gorm:"foreignKey:CatalogID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
