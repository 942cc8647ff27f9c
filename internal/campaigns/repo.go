package campaigns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/repo"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/pagination"
)

// Repository persists campaigns.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, campaign *models.Campaign) error {
	return r.DB(ctx).Create(campaign).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.DB(ctx).Where("id = ?", id).First(&campaign).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// ListByProfile returns one cursor page of a profile's campaigns, newest
// first. It fetches limit+1 rows so the caller can detect a next page.
func (r *Repository) ListByProfile(ctx context.Context, profileID uuid.UUID, params pagination.Params) ([]models.Campaign, error) {
	query := r.DB(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var campaigns []models.Campaign
	if err := query.Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *Repository) Update(ctx context.Context, campaign *models.Campaign) error {
	return r.DB(ctx).Save(campaign).Error
}

// Delete removes a campaign. Missing rows are not an error.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Campaign{}).Error
}

// DeleteWithTx removes the campaign and its orders inside the provided
// transaction.
func (r *Repository) DeleteWithTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.
		Where("order_id IN (?)", tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.Order{}).Select("id").Where("campaign_id = ?", id)).
		Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("campaign_id = ?", id).Delete(&models.Order{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Campaign{}).Error
}

// RecomputeAggregatesWithTx rewrites the stored order count and raised total
// from the campaign's orders. Runs in the same transaction as the order
// mutation so the stored aggregates are never stale.
func (r *Repository) RecomputeAggregatesWithTx(tx *gorm.DB, campaignID uuid.UUID) error {
	return tx.Exec(`
		UPDATE campaigns SET
			order_count = (SELECT COUNT(*) FROM orders WHERE campaign_id = ?),
			total_raised = (SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE campaign_id = ?)
		WHERE id = ?`, campaignID, campaignID, campaignID).Error
}
