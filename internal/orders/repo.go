package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/repo"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/pagination"
)

// Repository persists orders and their priced line items.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// CreateWithTx inserts the order and its line items inside the provided
// transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, order *models.Order) error {
	return tx.Create(order).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).Preload("LineItems").Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByCampaign returns one cursor page of a campaign's orders, newest
// first, line items included.
func (r *Repository) ListByCampaign(ctx context.Context, campaignID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	query := r.DB(ctx).
		Preload("LineItems").
		Where("campaign_id = ?", campaignID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateWithTx saves the order and replaces its line items inside the
// provided transaction. Line items are snapshots, so an update rewrites the
// full set rather than diffing it.
func (r *Repository) UpdateWithTx(tx *gorm.DB, order *models.Order, lineItems []models.OrderLineItem) error {
	if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	order.LineItems = nil
	if err := tx.Save(order).Error; err != nil {
		return err
	}
	if len(lineItems) == 0 {
		return nil
	}
	if err := tx.Create(&lineItems).Error; err != nil {
		return err
	}
	order.LineItems = lineItems
	return nil
}

// DeleteWithTx removes the order and its line items inside the provided
// transaction. Missing rows are not an error.
func (r *Repository) DeleteWithTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("order_id = ?", id).Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Order{}).Error
}
