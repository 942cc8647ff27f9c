package profiles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/repo"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
)

// Repository handles profile persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to profile operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create persists a new profile row.
func (r *Repository) Create(ctx context.Context, profile *models.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is required")
	}
	return r.DB(ctx).Create(profile).Error
}

// FindByID loads a profile by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.DB(ctx).
		Where("id = ?", id).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByOwner returns all profiles owned by the account.
func (r *Repository) FindByOwner(ctx context.Context, ownerAccountID uuid.UUID) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := r.DB(ctx).
		Where("owner_account_id = ?", ownerAccountID).
		Order("seller_name").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// FindSharedWith returns the profiles another owner has shared with the
// account, joined through the share grants.
func (r *Repository) FindSharedWith(ctx context.Context, accountID uuid.UUID) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := r.DB(ctx).
		Joins("JOIN shares ON shares.profile_id = profiles.id").
		Where("shares.target_account_id = ?", accountID).
		Order("profiles.seller_name").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Update saves the provided profile.
func (r *Repository) Update(ctx context.Context, profile *models.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is required")
	}
	return r.DB(ctx).Save(profile).Error
}

// Delete removes the profile row. Deleting a missing profile is not an error.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).
		Where("id = ?", id).
		Delete(&models.Profile{}).Error
}

// DeleteWithTx removes the profile and its dependent rows inside the provided
// transaction.
func (r *Repository) DeleteWithTx(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if err := tx.Where("profile_id = ?", id).Delete(&models.Share{}).Error; err != nil {
		return err
	}
	if err := tx.Where("profile_id = ?", id).Delete(&models.Invite{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Profile{}).Error
}
