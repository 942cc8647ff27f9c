package catalogs

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/ids"
)

// ProductDTO is one sellable item within a catalog.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	SortOrder   int             `json:"sort_order"`
}

// CatalogDTO is the transport shape for one catalog.
type CatalogDTO struct {
	ID        ids.CanonicalID `json:"id"`
	Name      string          `json:"name"`
	IsPublic  bool            `json:"is_public"`
	Products  []ProductDTO    `json:"products,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.Catalog) *CatalogDTO {
	if m == nil {
		return nil
	}
	products := make([]ProductDTO, 0, len(m.Products))
	for _, p := range m.Products {
		products = append(products, ProductDTO{
			ID:          p.ID,
			ProductName: p.ProductName,
			Price:       p.Price,
			SortOrder:   p.SortOrder,
		})
	}
	return &CatalogDTO{
		ID:        ids.FromUUID(ids.KindCatalog, m.ID),
		Name:      m.Name,
		IsPublic:  m.IsPublic,
		Products:  products,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ToDTOs maps a slice of models.
func ToDTOs(ms []models.Catalog) []CatalogDTO {
	out := make([]CatalogDTO, 0, len(ms))
	for i := range ms {
		out = append(out, *ToDTO(&ms[i]))
	}
	return out
}
