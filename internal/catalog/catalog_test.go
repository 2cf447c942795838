package catalog

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"variantcart/internal/domain"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want *float64
	}{
		{"nil", nil, nil},
		{"float", 1250.5, f(1250.5)},
		{"int", 45000, f(45000)},
		{"string with symbols", "MK 45,000.00", f(45000)},
		{"pound sign", "£399.99", f(399.99)},
		{"json number", json.Number("12.5"), f(12.5)},
		{"garbage", "call us", nil},
		{"two points", "1.2.3", nil},
		{"nan", math.NaN(), nil},
		{"inf", math.Inf(1), nil},
		{"negative number", -5.0, nil},
		{"zero", 0.0, f(0)},
		{"bool", true, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParsePrice(tc.in)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tc.want, *got, 1e-9)
		})
	}
}

func TestParseStock(t *testing.T) {
	assert.Equal(t, 3, ParseStock(3.0))
	assert.Equal(t, 7, ParseStock("7"))
	assert.Equal(t, 0, ParseStock("-2"))
	assert.Equal(t, 0, ParseStock(-4))
	assert.Equal(t, 12, ParseStock("12 units"))
	assert.Equal(t, 0, ParseStock(nil))
	assert.Equal(t, 0, ParseStock(math.NaN()))
}

func TestSanitizeCondition(t *testing.T) {
	cases := map[string]domain.Condition{
		"new":      domain.ConditionNew,
		"Like New": domain.ConditionLikeNew,
		"like-new": domain.ConditionLikeNew,
		"GOOD":     domain.ConditionGood,
		"fair":     domain.ConditionFair,
		"poor":     domain.ConditionNew,
		"mint":     domain.ConditionNew,
	}
	for in, want := range cases {
		got, ok := SanitizeCondition(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := SanitizeCondition(nil)
	assert.False(t, ok)
	_, ok = SanitizeCondition("  ")
	assert.False(t, ok)
	_, ok = SanitizeCondition(3)
	assert.False(t, ok)
}

func TestNormalizeProduct(t *testing.T) {
	inactive := false
	raw := RawProduct{
		ID:   "p1",
		Name: " Phone X ",
		Fields: map[string]interface{}{
			"price":          "MK 500,000",
			"priceGBP":       "220",
			"stock_quantity": "4",
		},
		Variants: []RawVariant{
			{ID: "v1", Fields: map[string]interface{}{
				"color":     map[string]interface{}{"name": "Black", "hex": "#000000"},
				"storage":   "128GB",
				"condition": "poor",
				"qty":       2,
				"price_mwk": 450000.0,
			}},
			{ID: "v2", Active: &inactive, Fields: map[string]interface{}{"condition": "new", "price_mwk": 1.0}},
			{ID: "v3", Fields: map[string]interface{}{"storage": "256GB", "price_mwk": 300000.0}},
			{ID: "v4", Fields: map[string]interface{}{
				"colour":    "White",
				"color_hex": "#fff",
				"capacity":  "256GB",
				"grade":     "Good",
				"stock":     "1",
				"price_gbp": "£180",
				"is_active": "true",
			}},
			{ID: "v5", Fields: map[string]interface{}{"condition": "fair", "active": "false"}},
		},
	}

	p := NormalizeProduct(raw)
	assert.Equal(t, "Phone X", p.Name)
	assert.Equal(t, 4, p.Stock)
	require.NotNil(t, p.Prices.Generic)
	assert.Equal(t, 500000.0, *p.Prices.Generic)
	require.NotNil(t, p.Prices.GBP)
	assert.Equal(t, 220.0, *p.Prices.GBP)

	require.Len(t, p.Variants, 2)
	v1 := p.Variants[0]
	assert.Equal(t, "v1", v1.ID)
	assert.Equal(t, "p1", v1.ProductID)
	assert.Equal(t, domain.ConditionNew, v1.Condition)
	assert.Equal(t, &domain.Color{Name: "Black", Hex: "#000000"}, v1.Color)
	assert.Equal(t, 2, v1.Stock)

	v4 := p.Variants[1]
	assert.Equal(t, "v4", v4.ID)
	assert.Equal(t, "256GB", v4.Storage)
	assert.Equal(t, domain.ConditionGood, v4.Condition)
	assert.Equal(t, &domain.Color{Name: "White", Hex: "#fff"}, v4.Color)

	require.NotNil(t, p.LowestVariantPrices.MWK)
	assert.Equal(t, 450000.0, *p.LowestVariantPrices.MWK)
	require.NotNil(t, p.LowestVariantPrices.GBP)
	assert.Equal(t, 180.0, *p.LowestVariantPrices.GBP)
}

func TestNormalizeProductKeepsExplicitLowest(t *testing.T) {
	p := NormalizeProduct(RawProduct{
		ID:     "p1",
		Fields: map[string]interface{}{"lowest_price_gbp": 99},
		Variants: []RawVariant{
			{ID: "v1", Fields: map[string]interface{}{"condition": "new", "price_gbp": 150}},
		},
	})
	require.NotNil(t, p.LowestVariantPrices.GBP)
	assert.Equal(t, 99.0, *p.LowestVariantPrices.GBP)
	assert.Nil(t, p.LowestVariantPrices.MWK)
}

func f(v float64) *float64 { return &v }
