package invites

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/repo"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
)

// Repository persists invite codes.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, invite *models.Invite) error {
	return r.DB(ctx).Create(invite).Error
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Invite, error) {
	var invite models.Invite
	err := r.DB(ctx).Where("code = ?", code).First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *Repository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Invite, error) {
	var invites []models.Invite
	err := r.DB(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, err
	}
	return invites, nil
}

// MarkRedeemedWithTx stamps the invite as consumed inside the provided
// transaction. The redeemed_at guard makes the consume a conditional write:
// zero rows affected means another request already consumed it.
func (r *Repository) MarkRedeemedWithTx(tx *gorm.DB, inviteID uuid.UUID, accountID uuid.UUID, at time.Time) (bool, error) {
	res := tx.Model(&models.Invite{}).
		Where("id = ? AND redeemed_at IS NULL", inviteID).
		Updates(map[string]any{
			"redeemed_at":            at,
			"redeemed_by_account_id": accountID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes an invite by code within a profile. Missing rows are not an
// error.
func (r *Repository) Delete(ctx context.Context, profileID uuid.UUID, code string) error {
	return r.DB(ctx).
		Where("profile_id = ? AND code = ?", profileID, code).
		Delete(&models.Invite{}).Error
}
