// Package catalog turns raw catalog records, whose price and stock fields
// arrive under many aliases and types, into the canonical domain shape.
package catalog

import (
	"strings"

	"variantcart/internal/domain"
)

// RawProduct is a product as stored or imported. Fields holds the price and
// stock attributes under whatever keys the source used.
type RawProduct struct {
	ID       string
	Name     string
	Brand    string
	Category string
	Fields   map[string]interface{}
	Variants []RawVariant
}

// RawVariant is a variant row. Active is nil when the source has no flag.
type RawVariant struct {
	ID        string
	ProductID string
	Active    *bool
	Fields    map[string]interface{}
}

var (
	mwkPriceKeys     = []string{"price_mwk", "priceMWK", "priceMwk", "mwk_price", "price_malawi"}
	gbpPriceKeys     = []string{"price_gbp", "priceGBP", "priceGbp", "gbp_price", "price_uk"}
	genericPriceKeys = []string{"price", "base_price", "basePrice", "unit_price"}
	lowestMWKKeys    = []string{"lowest_price_mwk", "lowestPriceMWK", "min_price_mwk", "lowest_variant_price_mwk"}
	lowestGBPKeys    = []string{"lowest_price_gbp", "lowestPriceGBP", "min_price_gbp", "lowest_variant_price_gbp"}
	stockKeys        = []string{"stock", "stock_quantity", "stockQuantity", "quantity", "qty", "inventory"}
	colorKeys        = []string{"color", "colour", "color_name", "colorName"}
	colorHexKeys     = []string{"color_hex", "colorHex", "colour_hex", "hex"}
	storageKeys      = []string{"storage", "storage_capacity", "storageCapacity", "capacity"}
	conditionKeys    = []string{"condition", "grade"}
	activeKeys       = []string{"is_active", "isActive", "active"}
)

// NormalizeProduct builds the canonical product. Inactive variants and
// variants without a usable condition are dropped; catalog order is kept.
func NormalizeProduct(raw RawProduct) domain.Product {
	p := domain.Product{
		ID:       strings.TrimSpace(raw.ID),
		Name:     strings.TrimSpace(raw.Name),
		Brand:    strings.TrimSpace(raw.Brand),
		Category: strings.TrimSpace(raw.Category),
		Prices:   pricesFrom(raw.Fields),
		Stock:    ParseStock(first(raw.Fields, stockKeys)),
		LowestVariantPrices: domain.Prices{
			MWK: ParsePrice(first(raw.Fields, lowestMWKKeys)),
			GBP: ParsePrice(first(raw.Fields, lowestGBPKeys)),
		},
	}
	for _, rv := range raw.Variants {
		v, ok := NormalizeVariant(rv)
		if !ok {
			continue
		}
		if v.ProductID == "" {
			v.ProductID = p.ID
		}
		p.Variants = append(p.Variants, v)
	}
	if p.LowestVariantPrices.MWK == nil {
		p.LowestVariantPrices.MWK = lowest(p.Variants, domain.MWK)
	}
	if p.LowestVariantPrices.GBP == nil {
		p.LowestVariantPrices.GBP = lowest(p.Variants, domain.GBP)
	}
	return p
}

// NormalizeVariant returns false for variants that must not take part in resolution.
func NormalizeVariant(raw RawVariant) (domain.Variant, bool) {
	active := true
	if raw.Active != nil {
		active = *raw.Active
	} else if v := first(raw.Fields, activeKeys); v != nil {
		active = parseBool(v, true)
	}
	if !active {
		return domain.Variant{}, false
	}
	cond, ok := SanitizeCondition(first(raw.Fields, conditionKeys))
	if !ok {
		return domain.Variant{}, false
	}
	return domain.Variant{
		ID:        strings.TrimSpace(raw.ID),
		ProductID: strings.TrimSpace(raw.ProductID),
		Color:     colorFrom(raw.Fields),
		Storage:   stringFrom(first(raw.Fields, storageKeys)),
		Condition: cond,
		Stock:     ParseStock(first(raw.Fields, stockKeys)),
		Prices:    pricesFrom(raw.Fields),
		Active:    true,
	}, true
}

func pricesFrom(fields map[string]interface{}) domain.Prices {
	return domain.Prices{
		MWK:     ParsePrice(first(fields, mwkPriceKeys)),
		GBP:     ParsePrice(first(fields, gbpPriceKeys)),
		Generic: ParsePrice(first(fields, genericPriceKeys)),
	}
}

func colorFrom(fields map[string]interface{}) *domain.Color {
	hex := stringFrom(first(fields, colorHexKeys))
	switch v := first(fields, colorKeys).(type) {
	case map[string]interface{}:
		name := stringFrom(v["name"])
		if h := stringFrom(v["hex"]); h != "" {
			hex = h
		}
		if name == "" && hex == "" {
			return nil
		}
		return &domain.Color{Name: name, Hex: hex}
	case string:
		name := strings.TrimSpace(v)
		if name == "" && hex == "" {
			return nil
		}
		return &domain.Color{Name: name, Hex: hex}
	}
	if hex != "" {
		return &domain.Color{Hex: hex}
	}
	return nil
}

// lowest prefers the currency field. Generic fields are denominated in the
// base currency, so they only count towards MWK.
func lowest(variants []domain.Variant, c domain.Currency) *float64 {
	var out *float64
	for _, v := range variants {
		price := v.Prices.For(c)
		if !domain.Usable(price) && c == domain.MWK {
			price = v.Prices.Generic
		}
		if !domain.Usable(price) {
			continue
		}
		if out == nil || *price < *out {
			p := *price
			out = &p
		}
	}
	return out
}

func first(fields map[string]interface{}, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringFrom(raw interface{}) string {
	s, _ := raw.(string)
	return strings.TrimSpace(s)
}

// IsStockField reports whether key is one of the stock aliases.
func IsStockField(key string) bool {
	for _, k := range stockKeys {
		if k == key {
			return true
		}
	}
	return false
}
