package shares

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
)

// ShareDTO is the transport shape for one grant.
type ShareDTO struct {
	ProfileID       uuid.UUID `json:"profile_id"`
	TargetAccountID uuid.UUID `json:"target_account_id"`
	Permissions     []string  `json:"permissions"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.Share) *ShareDTO {
	if m == nil {
		return nil
	}
	return &ShareDTO{
		ProfileID:       m.ProfileID,
		TargetAccountID: m.TargetAccountID,
		Permissions:     append([]string(nil), m.Permissions...),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// ToDTOs maps a slice of models.
func ToDTOs(ms []models.Share) []ShareDTO {
	out := make([]ShareDTO, 0, len(ms))
	for i := range ms {
		out = append(out, *ToDTO(&ms[i]))
	}
	return out
}
