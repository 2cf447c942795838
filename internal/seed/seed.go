package seed

import (
	"context"
	"fmt"

	"variantcart/internal/catalog"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product catalog.RawProduct) error
}

type variantSeed struct {
	ID      string
	Fields  map[string]interface{}
	Disable bool
}

type productSeed struct {
	ID       string
	Name     string
	Brand    string
	Category string
	Fields   map[string]interface{}
	Variants []variantSeed
}

// demo data deliberately mixes field aliases and value types the way
// legacy catalog exports do
var products = []productSeed{
	{
		ID:       "demo-phone",
		Name:     "Demo Phone 12",
		Brand:    "Demo",
		Category: "phones",
		Fields:   map[string]interface{}{"price": "MWK 650,000", "price_gbp": 290.0, "stock_quantity": 0},
		Variants: []variantSeed{
			{ID: "demo-phone-128-black-new", Fields: map[string]interface{}{"color": "Black", "color_hex": "#111111", "storage": "128GB", "condition": "new", "stock": 0, "price_mwk": 650000.0, "price_gbp": 290.0}},
			{ID: "demo-phone-128-black-good", Fields: map[string]interface{}{"color": map[string]interface{}{"name": "Black", "hex": "#111111"}, "storage": "128 GB", "condition": "Good", "stock": "3", "priceMWK": "520000"}},
			{ID: "demo-phone-256-blue-likenew", Fields: map[string]interface{}{"colour": "Blue", "hex": "#1e3a8a", "storage": "256GB", "grade": "like new", "qty": 2, "price_mwk": 700000, "price_gbp": 0}},
			{ID: "demo-phone-256-blue-poor", Fields: map[string]interface{}{"color": "Blue", "storage": "256GB", "condition": "poor", "stock": 4, "price_mwk": 410000}},
			{ID: "demo-phone-512-gold-new", Disable: true, Fields: map[string]interface{}{"color": "Gold", "storage": "512GB", "condition": "new", "stock": 9, "price_mwk": 900000}},
		},
	},
	{
		ID:       "demo-case",
		Name:     "Demo Phone Case",
		Brand:    "Demo",
		Category: "accessories",
		Fields:   map[string]interface{}{"price_mwk": 45000, "price_gbp": 0, "stock": 25},
	},
	{
		ID:       "demo-cable",
		Name:     "USB-C Cable",
		Brand:    "Demo",
		Category: "accessories",
		Fields:   map[string]interface{}{"price_mwk": "5,000", "stock": "40"},
	},
}

// Products returns the demo catalog as raw records.
func Products() []catalog.RawProduct {
	out := make([]catalog.RawProduct, 0, len(products))
	for _, p := range products {
		raw := catalog.RawProduct{
			ID:       p.ID,
			Name:     p.Name,
			Brand:    p.Brand,
			Category: p.Category,
			Fields:   p.Fields,
		}
		for _, v := range p.Variants {
			rv := catalog.RawVariant{ID: v.ID, ProductID: p.ID, Fields: v.Fields}
			if v.Disable {
				inactive := false
				rv.Active = &inactive
			}
			raw.Variants = append(raw.Variants, rv)
		}
		out = append(out, raw)
	}
	return out
}

// Apply upserts the demo catalog. It is idempotent.
func Apply(ctx context.Context, repo ProductWriter) error {
	for _, p := range Products() {
		if err := repo.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
	}
	return nil
}
