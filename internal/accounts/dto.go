package accounts

import (
	"time"

	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

// AccountDTO is the transport shape for the caller's own account.
type AccountDTO struct {
	ID          ids.CanonicalID `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name"`
	IsAdmin     bool            `json:"is_admin"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.Account) *AccountDTO {
	if m == nil {
		return nil
	}
	return &AccountDTO{
		ID:          ids.FromUUID(ids.KindAccount, m.ID),
		Email:       m.Email,
		DisplayName: m.DisplayName,
		IsAdmin:     m.IsAdmin,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
