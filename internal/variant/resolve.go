// Package variant matches a partial attribute selection to one of a
// product's variants and derives the option sets shown in attribute pickers.
package variant

import (
	"strings"

	"variantcart/internal/domain"
)

// Resolve returns the first variant, in catalog order, of the highest tier
// the selection satisfies:
//
//  1. color, storage and condition (only when color and storage are chosen)
//  2. storage and condition
//  3. color and condition
//  4. condition
//
// A tier whose attribute was not chosen is skipped. Stock plays no part in
// matching. Nil means the caller must fall back to product-level price and stock.
func Resolve(variants []domain.Variant, sel domain.Selection) *domain.Variant {
	candidates := eligible(variants)
	hasColor := strings.TrimSpace(sel.Color) != ""
	hasStorage := strings.TrimSpace(sel.Storage) != ""

	tiers := []func(domain.Variant) bool{
		func(v domain.Variant) bool {
			return hasColor && hasStorage && colorMatches(v, sel.Color) && storageMatches(v, sel.Storage)
		},
		func(v domain.Variant) bool { return hasStorage && storageMatches(v, sel.Storage) },
		func(v domain.Variant) bool { return hasColor && colorMatches(v, sel.Color) },
		func(domain.Variant) bool { return true },
	}
	for _, tier := range tiers {
		for i := range candidates {
			v := candidates[i]
			if v.Condition == sel.Condition && tier(v) {
				return &v
			}
		}
	}
	return nil
}

// eligible drops variants that do not exist for matching purposes.
func eligible(variants []domain.Variant) []domain.Variant {
	out := make([]domain.Variant, 0, len(variants))
	for _, v := range variants {
		if v.Active && v.Condition.Valid() {
			out = append(out, v)
		}
	}
	return out
}

func colorMatches(v domain.Variant, color string) bool {
	if v.Color == nil {
		return false
	}
	want := strings.TrimSpace(color)
	if strings.EqualFold(v.Color.Name, want) {
		return true
	}
	return v.Color.Hex != "" && strings.EqualFold(strings.TrimPrefix(v.Color.Hex, "#"), strings.TrimPrefix(want, "#"))
}

func storageMatches(v domain.Variant, storage string) bool {
	return normalizeStorage(v.Storage) == normalizeStorage(storage)
}

func normalizeStorage(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
