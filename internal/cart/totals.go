package cart

import (
	"github.com/shopspring/decimal"

	"variantcart/internal/domain"
)

// Totals summarises the cart in one currency.
type Totals struct {
	Currency domain.Currency `json:"currency"`
	Units    int             `json:"units"`
	Amount   float64         `json:"amount"`
}

// Total sums cached unit prices; pre-orders count as at least one unit.
func Total(items []domain.CartItem, c domain.Currency) Totals {
	sum := decimal.Zero
	units := 0
	for _, item := range items {
		qty := item.BillableQuantity()
		units += qty
		sum = sum.Add(decimal.NewFromFloat(item.UnitPrice(c)).Mul(decimal.NewFromInt(int64(qty))))
	}
	return Totals{Currency: c, Units: units, Amount: sum.Round(2).InexactFloat64()}
}
