package campaigns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

// CampaignDTO is the transport shape for one campaign, aggregates included.
type CampaignDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProfileID   ids.CanonicalID `json:"profile_id"`
	CatalogID   ids.CanonicalID `json:"catalog_id"`
	Name        string          `json:"name"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	OrderCount  int             `json:"order_count"`
	TotalRaised decimal.Decimal `json:"total_raised"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CampaignListDTO is one cursor page of campaigns.
type CampaignListDTO struct {
	Items      []CampaignDTO `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.Campaign) *CampaignDTO {
	if m == nil {
		return nil
	}
	return &CampaignDTO{
		ID:          m.ID,
		ProfileID:   ids.FromUUID(ids.KindProfile, m.ProfileID),
		CatalogID:   ids.FromUUID(ids.KindCatalog, m.CatalogID),
		Name:        m.Name,
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		OrderCount:  m.OrderCount,
		TotalRaised: m.TotalRaised,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ToDTOs maps a slice of models.
func ToDTOs(ms []models.Campaign) []CampaignDTO {
	out := make([]CampaignDTO, 0, len(ms))
	for i := range ms {
		out = append(out, *ToDTO(&ms[i]))
	}
	return out
}
