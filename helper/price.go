package helper

import (
	"restaurant_manager/model"

	"github.com/shopspring/decimal"
)

// CalculateSubtotal sums price * quantity over the cart.
func CalculateSubtotal(items []model.OrderItem) float64 {
	total := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total.InexactFloat64()
}

func CalculateFinalTotal(subtotal, serviceCharge, tax float64) float64 {
	return decimal.NewFromFloat(subtotal).
		Add(decimal.NewFromFloat(serviceCharge)).
		Add(decimal.NewFromFloat(tax)).
		InexactFloat64()
}

// CapturePrices fixes each line's price at submission time. Items known to the catalog
// take the catalog price and name; unknown items keep what the cart sent.
func CapturePrices(items []model.OrderItem, catalog map[string]model.MenuItem) []model.OrderItem {
	out := make([]model.OrderItem, len(items))
	for i, item := range items {
		if m, ok := catalog[item.ID]; ok {
			item.Price = m.Price
			if item.Name == "" {
				item.Name = m.Name
			}
			if item.Category == "" {
				item.Category = m.Category
			}
		}
		out[i] = item
	}
	return out
}
