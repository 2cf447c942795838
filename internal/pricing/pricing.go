// Package pricing resolves the unit price of a product or variant in the
// active currency.
package pricing

import (
	"github.com/shopspring/decimal"

	"variantcart/internal/domain"
)

// DefaultMWKPerGBP is the constant conversion rate used when a product has
// no GBP price of its own.
const DefaultMWKPerGBP = 2200

// Resolver never fails: zero is the unpriced sentinel.
type Resolver struct {
	MWKPerGBP float64
}

// New returns a Resolver using rate, or DefaultMWKPerGBP when rate is not positive.
func New(rate float64) Resolver {
	if rate <= 0 {
		rate = DefaultMWKPerGBP
	}
	return Resolver{MWKPerGBP: rate}
}

// Resolve returns the unit price of v, or of p when v is nil, in currency c.
//
//  1. the record's field for c
//  2. the record's generic field (base currency, so MWK only)
//  3. the product's lowest variant price for c, only when no variant resolved
//  4. the product-level price, converted at the constant rate for GBP when
//     the product has no GBP field
//  5. zero
func (r Resolver) Resolve(p domain.Product, v *domain.Variant, c domain.Currency) float64 {
	record := p.Prices
	if v != nil {
		record = v.Prices
	}
	if price := record.For(c); domain.Usable(price) {
		return round(*price)
	}
	if c == domain.MWK && domain.Usable(record.Generic) {
		return round(*record.Generic)
	}
	if v == nil {
		if price := p.LowestVariantPrices.For(c); domain.Usable(price) {
			return round(*price)
		}
	}
	return r.productLevel(p, c)
}

// PricesFor resolves every supported currency, for caching on a cart item.
func (r Resolver) PricesFor(p domain.Product, v *domain.Variant) map[domain.Currency]float64 {
	out := make(map[domain.Currency]float64, len(domain.Currencies))
	for _, c := range domain.Currencies {
		out[c] = r.Resolve(p, v, c)
	}
	return out
}

func (r Resolver) productLevel(p domain.Product, c domain.Currency) float64 {
	base := p.Prices.Generic
	if !domain.Usable(base) {
		base = p.Prices.MWK
	}
	switch c {
	case domain.MWK:
		if domain.Usable(base) {
			return round(*base)
		}
	case domain.GBP:
		if domain.Usable(p.Prices.GBP) {
			return round(*p.Prices.GBP)
		}
		if domain.Usable(base) && r.MWKPerGBP > 0 {
			return decimal.NewFromFloat(*base).
				Div(decimal.NewFromFloat(r.MWKPerGBP)).
				Round(2).
				InexactFloat64()
		}
	}
	return 0
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
