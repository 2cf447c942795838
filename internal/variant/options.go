package variant

import (
	"variantcart/internal/domain"
)

// Options is what an attribute picker needs for the current selection.
type Options struct {
	Storages   []string           `json:"storages"`
	Colors     []domain.Color     `json:"colors"`
	Conditions []domain.Condition `json:"conditions"`
}

// OptionsFor computes every option set for the selection in one pass over the variants.
func OptionsFor(variants []domain.Variant, sel domain.Selection) Options {
	return Options{
		Storages:   AvailableStorages(variants),
		Colors:     AvailableColors(variants, sel.Storage),
		Conditions: AvailableConditions(variants, sel.Storage),
	}
}

// AvailableStorages lists, in catalog order, storages with at least one variant in stock.
func AvailableStorages(variants []domain.Variant) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range eligible(variants) {
		if v.Stock <= 0 || v.Storage == "" {
			continue
		}
		key := normalizeStorage(v.Storage)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v.Storage)
	}
	return out
}

// AvailableColors lists in-stock colors for storage, or across all variants when storage is empty.
func AvailableColors(variants []domain.Variant, storage string) []domain.Color {
	seen := make(map[string]bool)
	var out []domain.Color
	for _, v := range eligible(variants) {
		if v.Stock <= 0 || v.Color == nil {
			continue
		}
		if storage != "" && !storageMatches(v, storage) {
			continue
		}
		key := v.Color.Name + "|" + v.Color.Hex
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, *v.Color)
	}
	return out
}

// AvailableConditions lists in-stock conditions for storage, or across all
// variants when storage is empty, best condition first.
func AvailableConditions(variants []domain.Variant, storage string) []domain.Condition {
	inStock := make(map[domain.Condition]bool)
	for _, v := range eligible(variants) {
		if v.Stock <= 0 {
			continue
		}
		if storage != "" && !storageMatches(v, storage) {
			continue
		}
		inStock[v.Condition] = true
	}
	var out []domain.Condition
	for _, c := range domain.Conditions {
		if inStock[c] {
			out = append(out, c)
		}
	}
	return out
}

// FirstInStockCondition returns the condition a picker should auto-select
// after a storage change made the current one unavailable.
func FirstInStockCondition(variants []domain.Variant, storage string) (domain.Condition, bool) {
	conds := AvailableConditions(variants, storage)
	if len(conds) == 0 {
		return "", false
	}
	return conds[0], true
}

// Reselect keeps sel when its condition is still in stock for the chosen
// storage, otherwise it swaps in the first in-stock condition.
func Reselect(variants []domain.Variant, sel domain.Selection) domain.Selection {
	for _, c := range AvailableConditions(variants, sel.Storage) {
		if c == sel.Condition {
			return sel
		}
	}
	if c, ok := FirstInStockCondition(variants, sel.Storage); ok {
		sel.Condition = c
	}
	return sel
}
