package invites

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
)

// InviteDTO is the transport shape for one invite code.
type InviteDTO struct {
	Code        string     `json:"code"`
	ProfileID   uuid.UUID  `json:"profile_id"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RedeemedAt  *time.Time `json:"redeemed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.Invite) *InviteDTO {
	if m == nil {
		return nil
	}
	return &InviteDTO{
		Code:        m.Code,
		ProfileID:   m.ProfileID,
		Permissions: append([]string(nil), m.Permissions...),
		ExpiresAt:   m.ExpiresAt,
		RedeemedAt:  m.RedeemedAt,
		CreatedAt:   m.CreatedAt,
	}
}

// ToDTOs maps a slice of models.
func ToDTOs(ms []models.Invite) []InviteDTO {
	out := make([]InviteDTO, 0, len(ms))
	for i := range ms {
		out = append(out, *ToDTO(&ms[i]))
	}
	return out
}
