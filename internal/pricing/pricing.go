package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/db/models"
	pkgerrors "github.com/dmeiser/popcorn-sales-manager-sub005/pkg/errors"
)

// Item is a client-submitted line: product reference and quantity only. Any
// prices or subtotals a client sends are never read.
type Item struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required"`
}

// Line is one server-priced order line.
type Line struct {
	ProductID    uuid.UUID
	ProductName  string
	Quantity     int
	PricePerUnit decimal.Decimal
	Subtotal     decimal.Decimal
}

// Price computes line subtotals and the order total from the catalog's
// products. Validation is atomic: a single unknown product or quantity below 1
// rejects the whole set, naming the offender, and no lines are returned.
func Price(products []models.Product, items []Item) ([]Line, decimal.Decimal, error) {
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID.String()] = p
	}

	lines := make([]Line, 0, len(items))
	total := decimal.Zero

	for _, item := range items {
		if item.Quantity < 1 {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("quantity %d for product %q must be at least 1", item.Quantity, item.ProductID))
		}
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %q is not in the campaign catalog", item.ProductID))
		}

		subtotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		lines = append(lines, Line{
			ProductID:    product.ID,
			ProductName:  product.ProductName,
			Quantity:     item.Quantity,
			PricePerUnit: product.Price,
			Subtotal:     subtotal,
		})
		total = total.Add(subtotal)
	}

	return lines, total.Round(2), nil
}

// ToLineItems converts priced lines into persistable models for the order.
func ToLineItems(orderID uuid.UUID, lines []Line) []models.OrderLineItem {
	out := make([]models.OrderLineItem, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.OrderLineItem{
			OrderID:      orderID,
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			Quantity:     line.Quantity,
			PricePerUnit: line.PricePerUnit,
			Subtotal:     line.Subtotal,
		})
	}
	return out
}
