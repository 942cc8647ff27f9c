package catalogs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/repo"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
)

// Repository persists catalogs and their products.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, catalog *models.Catalog) error {
	return r.DB(ctx).Create(catalog).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Catalog, error) {
	var catalog models.Catalog
	err := r.DB(ctx).Preload("Products", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC, product_name ASC")
	}).Where("id = ?", id).First(&catalog).Error
	if err != nil {
		return nil, err
	}
	return &catalog, nil
}

// ListVisible returns the catalogs an account can browse: every public
// catalog plus the account's own.
func (r *Repository) ListVisible(ctx context.Context, accountID uuid.UUID) ([]models.Catalog, error) {
	var catalogs []models.Catalog
	err := r.DB(ctx).
		Where("is_public = TRUE OR owner_account_id = ?", accountID).
		Order("created_at DESC").
		Find(&catalogs).Error
	if err != nil {
		return nil, err
	}
	return catalogs, nil
}

func (r *Repository) ListProducts(ctx context.Context, catalogID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.DB(ctx).
		Where("catalog_id = ?", catalogID).
		Order("sort_order ASC, product_name ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateWithTx saves the catalog and replaces its product set inside the
// provided transaction.
func (r *Repository) UpdateWithTx(tx *gorm.DB, catalog *models.Catalog, products []models.Product) error {
	if err := tx.Where("catalog_id = ?", catalog.ID).Delete(&models.Product{}).Error; err != nil {
		return err
	}
	catalog.Products = nil
	if err := tx.Save(catalog).Error; err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	if err := tx.Create(&products).Error; err != nil {
		return err
	}
	catalog.Products = products
	return nil
}

// DeleteWithTx removes the catalog and its products inside the provided
// transaction. Missing rows are not an error.
func (r *Repository) DeleteWithTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("catalog_id = ?", id).Delete(&models.Product{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Catalog{}).Error
}
