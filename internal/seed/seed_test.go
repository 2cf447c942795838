package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"variantcart/internal/catalog"
	"variantcart/internal/domain"
	"variantcart/internal/pricing"
	"variantcart/internal/variant"
)

type recorder struct {
	items []catalog.RawProduct
}

func (r *recorder) Upsert(_ context.Context, p catalog.RawProduct) error {
	r.items = append(r.items, p)
	return nil
}

func TestApplyWritesEveryProduct(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, Apply(context.Background(), rec))
	require.Len(t, rec.items, 3)
	assert.Equal(t, "demo-phone", rec.items[0].ID)
}

func TestDemoPhoneNormalizes(t *testing.T) {
	phone := catalog.NormalizeProduct(Products()[0])

	require.Len(t, phone.Variants, 4, "inactive gold variant is dropped")
	assert.Equal(t, domain.ConditionGood, phone.Variants[1].Condition)
	assert.Equal(t, 3, phone.Variants[1].Stock)
	assert.Equal(t, domain.ConditionLikeNew, phone.Variants[2].Condition)
	assert.Equal(t, domain.ConditionNew, phone.Variants[3].Condition, "legacy poor grade reads as new")

	// exact tier wins even though it is out of stock
	v := variant.Resolve(phone.Variants, domain.Selection{Color: "black", Storage: "128GB", Condition: domain.ConditionNew})
	require.NotNil(t, v)
	assert.Equal(t, "demo-phone-128-black-new", v.ID)

	prices := pricing.New(pricing.DefaultMWKPerGBP)
	assert.Equal(t, 520000.0, prices.Resolve(phone, &phone.Variants[1], domain.MWK))
	assert.Equal(t, 650000.0, prices.Resolve(phone, nil, domain.MWK))
}

func TestDemoCaseHasZeroGBP(t *testing.T) {
	p := catalog.NormalizeProduct(Products()[1])
	assert.Equal(t, 0.0, pricing.New(0).Resolve(p, nil, domain.GBP))
}
