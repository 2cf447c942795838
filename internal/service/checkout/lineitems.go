package checkout

import (
	"github.com/shopspring/decimal"

	"variantcart/internal/domain"
	"variantcart/internal/payment"
)

const (
	DeliveryFeeID     = "delivery-fee"
	SubscriptionFeeID = "subscription-fee"
)

// Fees are the pseudo-items appended to every session, in one currency.
// Zero fees are left out.
type Fees struct {
	Delivery     float64
	Subscription float64
}

// BuildLineItems turns validated cart lines into payment line items priced
// in c. Pre-orders are billed as at least one unit.
func BuildLineItems(items []domain.CartItem, c domain.Currency, fees Fees) []payment.LineItem {
	out := make([]payment.LineItem, 0, len(items)+2)
	for _, item := range items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		out = append(out, payment.LineItem{
			ID:         item.ProductID,
			Name:       name,
			UnitPrice:  item.UnitPrice(c),
			Quantity:   item.BillableQuantity(),
			VariantID:  item.VariantID,
			Attributes: attributes(item.Selection),
		})
	}
	if fees.Delivery > 0 {
		out = append(out, payment.LineItem{ID: DeliveryFeeID, Name: "Delivery", UnitPrice: fees.Delivery, Quantity: 1})
	}
	if fees.Subscription > 0 {
		out = append(out, payment.LineItem{ID: SubscriptionFeeID, Name: "Subscription", UnitPrice: fees.Subscription, Quantity: 1})
	}
	return out
}

// Sum is the session total of lines.
func Sum(lines []payment.LineItem) float64 {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total.Round(2).InexactFloat64()
}

func attributes(sel domain.Selection) map[string]string {
	out := map[string]string{}
	if sel.Color != "" {
		out["color"] = sel.Color
	}
	if sel.Storage != "" {
		out["storage"] = sel.Storage
	}
	if sel.Condition != "" {
		out["condition"] = string(sel.Condition)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
