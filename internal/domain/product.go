package domain

import "math"

// Prices carries the optional price fields of a catalog record after
// normalization. A nil field means the source record did not provide a usable value.
type Prices struct {
	MWK     *float64 `json:"mwk,omitempty"`
	GBP     *float64 `json:"gbp,omitempty"`
	Generic *float64 `json:"generic,omitempty"`
}

// For returns the currency-specific field.
func (p Prices) For(c Currency) *float64 {
	switch c {
	case MWK:
		return p.MWK
	case GBP:
		return p.GBP
	}
	return nil
}

// Usable reports whether v is present and a finite number.
func Usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// Color is a display color of a variant.
type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex,omitempty"`
}

// Variant is one sellable color/storage/condition combination of a product.
type Variant struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Color     *Color    `json:"color,omitempty"`
	Storage   string    `json:"storage,omitempty"`
	Condition Condition `json:"condition"`
	Stock     int       `json:"stock"`
	Prices    Prices    `json:"prices"`
	Active    bool      `json:"active"`
}

// Product is the canonical catalog record consumed by the resolvers.
// Variants only contains active variants with a valid condition, in catalog order.
type Product struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Brand               string    `json:"brand,omitempty"`
	Category            string    `json:"category,omitempty"`
	Prices              Prices    `json:"prices"`
	LowestVariantPrices Prices    `json:"lowestVariantPrices"`
	Stock               int       `json:"stock"`
	Variants            []Variant `json:"variants,omitempty"`
}
