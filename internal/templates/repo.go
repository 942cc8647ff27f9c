package templates

import (
	"context"

	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/repo"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
)

// Repository persists shared campaign templates.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts the template. The unique index on code is the must-not-exist
// precondition; a duplicate surfaces as the store's unique violation.
func (r *Repository) Create(ctx context.Context, template *models.SharedCampaignTemplate) error {
	return r.DB(ctx).Create(template).Error
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*models.SharedCampaignTemplate, error) {
	var template models.SharedCampaignTemplate
	err := r.DB(ctx).Where("code = ?", code).First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// FindByTuple returns all active templates matching the unit tuple exactly.
func (r *Repository) FindByTuple(ctx context.Context, unitType string, unitNumber int, city, state, campaignName string, campaignYear int) ([]models.SharedCampaignTemplate, error) {
	var templates []models.SharedCampaignTemplate
	err := r.DB(ctx).
		Where("unit_type = ? AND unit_number = ? AND city = ? AND state = ? AND campaign_name = ? AND campaign_year = ? AND active = TRUE",
			unitType, unitNumber, city, state, campaignName, campaignYear).
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// Deactivate clears the active flag. Missing or already-inactive rows are not
// an error.
func (r *Repository) Deactivate(ctx context.Context, code string) error {
	return r.DB(ctx).Model(&models.SharedCampaignTemplate{}).
		Where("code = ?", code).
		Update("active", false).Error
}
