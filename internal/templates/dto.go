package templates

import (
	"time"

	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

// TemplateDTO is the transport shape for one shared campaign template.
type TemplateDTO struct {
	Code         string          `json:"code"`
	CatalogID    ids.CanonicalID `json:"catalog_id"`
	UnitType     string          `json:"unit_type"`
	UnitNumber   int             `json:"unit_number"`
	City         string          `json:"city"`
	State        string          `json:"state"`
	CampaignName string          `json:"campaign_name"`
	CampaignYear int             `json:"campaign_year"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.SharedCampaignTemplate) *TemplateDTO {
	if m == nil {
		return nil
	}
	return &TemplateDTO{
		Code:         m.Code,
		CatalogID:    ids.FromUUID(ids.KindCatalog, m.CatalogID),
		UnitType:     m.UnitType,
		UnitNumber:   m.UnitNumber,
		City:         m.City,
		State:        m.State,
		CampaignName: m.CampaignName,
		CampaignYear: m.CampaignYear,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
	}
}

// ToDTOs maps a slice of models.
func ToDTOs(ms []models.SharedCampaignTemplate) []TemplateDTO {
	out := make([]TemplateDTO, 0, len(ms))
	for i := range ms {
		out = append(out, *ToDTO(&ms[i]))
	}
	return out
}
