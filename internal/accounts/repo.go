package accounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/repo"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
)

// Repository persists accounts.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, account *models.Account) error {
	return r.DB(ctx).Create(account).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.DB(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *Repository) FindBySubject(ctx context.Context, subject string) (*models.Account, error) {
	var account models.Account
	err := r.DB(ctx).Where("subject = ?", subject).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *Repository) Update(ctx context.Context, account *models.Account) error {
	return r.DB(ctx).Save(account).Error
}

// UpdatePaymentMethods rewrites only the payment method list.
func (r *Repository) UpdatePaymentMethods(ctx context.Context, id uuid.UUID, methods []string) error {
	return r.DB(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("payment_methods", pq.StringArray(methods)).Error
}
