package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
)

// LineItemDTO is one server-priced order line.
type LineItemDTO struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// OrderDTO is the transport shape for one order.
type OrderDTO struct {
	ID            uuid.UUID       `json:"id"`
	CampaignID    uuid.UUID       `json:"campaign_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone *string         `json:"customer_phone,omitempty"`
	CustomerEmail *string         `json:"customer_email,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	LineItems     []LineItemDTO   `json:"line_items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderListDTO is one cursor page of orders.
type OrderListDTO struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.Order) *OrderDTO {
	if m == nil {
		return nil
	}
	lines := make([]LineItemDTO, 0, len(m.LineItems))
	for _, li := range m.LineItems {
		lines = append(lines, LineItemDTO{
			ProductID:    li.ProductID,
			ProductName:  li.ProductName,
			Quantity:     li.Quantity,
			PricePerUnit: li.PricePerUnit,
			Subtotal:     li.Subtotal,
		})
	}
	return &OrderDTO{
		ID:            m.ID,
		CampaignID:    m.CampaignID,
		CustomerName:  m.CustomerName,
		CustomerPhone: m.CustomerPhone,
		CustomerEmail: m.CustomerEmail,
		Notes:         m.Notes,
		TotalAmount:   m.TotalAmount,
		LineItems:     lines,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ToDTOs maps a slice of models.
func ToDTOs(ms []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(ms))
	for i := range ms {
		out = append(out, *ToDTO(&ms[i]))
	}
	return out
}
