package shares

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/repo"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
)

// Repository handles share persistence. Reads go straight to the primary so a
// just-created or just-revoked grant is visible immediately.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to share operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// GetShare loads the single grant for a (profile, account) pair.
func (r *Repository) GetShare(ctx context.Context, profileID, accountID uuid.UUID) (*models.Share, error) {
	var share models.Share
	if err := r.DB(ctx).
		Where("profile_id = ? AND target_account_id = ?", profileID, accountID).
		First(&share).Error; err != nil {
		return nil, err
	}
	return &share, nil
}

// Upsert creates the grant or replaces the permission set of an existing one.
func (r *Repository) Upsert(ctx context.Context, share *models.Share) error {
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}, {Name: "target_account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"permissions", "updated_at"}),
		}).
		Create(share).Error
}

// UpsertWithTx runs Upsert inside the provided transaction.
func (r *Repository) UpsertWithTx(tx *gorm.DB, share *models.Share) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}, {Name: "target_account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"permissions", "updated_at"}),
		}).
		Create(share).Error
}

// Delete revokes the grant. Deleting a grant that does not exist is not an
// error.
func (r *Repository) Delete(ctx context.Context, profileID, accountID uuid.UUID) error {
	return r.DB(ctx).
		Where("profile_id = ? AND target_account_id = ?", profileID, accountID).
		Delete(&models.Share{}).Error
}

// ListByProfile returns every grant on the profile.
func (r *Repository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Share, error) {
	var shares []models.Share
	if err := r.DB(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at").
		Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}

// ListForAccount returns every grant held by the account.
func (r *Repository) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Share, error) {
	var shares []models.Share
	if err := r.DB(ctx).
		Where("target_account_id = ?", accountID).
		Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}
