package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"variantcart/internal/domain"
)

func catalogFixture() []domain.Variant {
	black := &domain.Color{Name: "Black", Hex: "#000000"}
	blue := &domain.Color{Name: "Blue", Hex: "#0000FF"}
	return []domain.Variant{
		{ID: "black-128-new", Color: black, Storage: "128GB", Condition: domain.ConditionNew, Stock: 2, Active: true},
		{ID: "blue-256-new", Color: blue, Storage: "256GB", Condition: domain.ConditionNew, Stock: 1, Active: true},
		{ID: "blue-128-good", Color: blue, Storage: "128GB", Condition: domain.ConditionGood, Stock: 0, Active: true},
		{ID: "black-256-good", Color: black, Storage: "256GB", Condition: domain.ConditionGood, Stock: 5, Active: true},
		{ID: "inactive-fair", Color: black, Storage: "128GB", Condition: domain.ConditionFair, Stock: 9, Active: false},
		{ID: "bad-condition", Color: black, Storage: "128GB", Condition: "poor", Stock: 9, Active: true},
	}
}

func TestResolveTiers(t *testing.T) {
	variants := catalogFixture()
	cases := []struct {
		name string
		sel  domain.Selection
		want string
	}{
		{"exact", domain.Selection{Color: "Blue", Storage: "256GB", Condition: domain.ConditionNew}, "blue-256-new"},
		{"exact by hex", domain.Selection{Color: "0000ff", Storage: "256 gb", Condition: domain.ConditionNew}, "blue-256-new"},
		{"storage and condition", domain.Selection{Color: "Red", Storage: "128GB", Condition: domain.ConditionGood}, "blue-128-good"},
		{"color and condition", domain.Selection{Color: "Black", Storage: "512GB", Condition: domain.ConditionGood}, "black-256-good"},
		{"color only supplied", domain.Selection{Color: "Blue", Condition: domain.ConditionGood}, "blue-128-good"},
		{"condition only", domain.Selection{Condition: domain.ConditionNew}, "black-128-new"},
		{"storage wins over color", domain.Selection{Color: "Black", Storage: "256GB", Condition: domain.ConditionNew}, "blue-256-new"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(variants, tc.sel)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got.ID)
		})
	}
}

func TestResolveSkipsIneligible(t *testing.T) {
	got := Resolve(catalogFixture(), domain.Selection{Storage: "128GB", Condition: domain.ConditionFair})
	assert.Nil(t, got)
}

func TestResolveNoVariants(t *testing.T) {
	assert.Nil(t, Resolve(nil, domain.Selection{Condition: domain.ConditionNew}))
}

func TestResolveIsDeterministic(t *testing.T) {
	variants := catalogFixture()
	sel := domain.Selection{Storage: "128GB", Condition: domain.ConditionNew}
	first := Resolve(variants, sel)
	second := Resolve(variants, sel)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolvePicksExactTierEvenWhenOutOfStock(t *testing.T) {
	variants := []domain.Variant{
		{ID: "new", Storage: "128GB", Condition: domain.ConditionNew, Stock: 0, Active: true},
		{ID: "good", Storage: "128GB", Condition: domain.ConditionGood, Stock: 3, Active: true},
	}
	got := Resolve(variants, domain.Selection{Storage: "128GB", Condition: domain.ConditionNew})
	require.NotNil(t, got)
	assert.Equal(t, "new", got.ID)
	assert.Equal(t, 0, got.Stock)
}

func TestResolveFirstInCatalogOrderWins(t *testing.T) {
	variants := []domain.Variant{
		{ID: "first", Storage: "64GB", Condition: domain.ConditionGood, Stock: 1, Active: true},
		{ID: "second", Storage: "64GB", Condition: domain.ConditionGood, Stock: 10, Active: true},
	}
	got := Resolve(variants, domain.Selection{Storage: "64GB", Condition: domain.ConditionGood})
	require.NotNil(t, got)
	assert.Equal(t, "first", got.ID)
}
