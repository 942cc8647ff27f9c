package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

// ProfileDTO is the transport shape for a seller profile. The id goes out in
// canonical tagged form; raw UUIDs stay an implementation detail of the store.
type ProfileDTO struct {
	ID             ids.CanonicalID `json:"id"`
	OwnerAccountID uuid.UUID       `json:"owner_account_id"`
	SellerName     string          `json:"seller_name"`
	UnitType       *string         `json:"unit_type,omitempty"`
	UnitNumber     *int            `json:"unit_number,omitempty"`
	City           *string         `json:"city,omitempty"`
	State          *string         `json:"state,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// FromModel converts a model to the external DTO.
func FromModel(m *models.Profile) *ProfileDTO {
	if m == nil {
		return nil
	}
	return &ProfileDTO{
		ID:             ids.FromUUID(ids.KindProfile, m.ID),
		OwnerAccountID: m.OwnerAccountID,
		SellerName:     m.SellerName,
		UnitType:       m.UnitType,
		UnitNumber:     m.UnitNumber,
		City:           m.City,
		State:          m.State,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromModels maps a slice of models.
func FromModels(ms []models.Profile) []ProfileDTO {
	out := make([]ProfileDTO, 0, len(ms))
	for i := range ms {
		out = append(out, *FromModel(&ms[i]))
	}
	return out
}
