package pricing

import (
	"strings"

	"variantcart/internal/domain"
)

// CurrencyForLocale picks the currency for a locale tag or country code
// such as "en-GB", "GB" or "ny-MW". An explicit currency code is accepted
// too. Anything unrecognised yields def.
func CurrencyForLocale(locale string, def domain.Currency) domain.Currency {
	locale = strings.TrimSpace(locale)
	if c, err := domain.ParseCurrency(locale); err == nil {
		return c
	}
	tag := strings.ToUpper(strings.ReplaceAll(locale, "_", "-"))
	if i := strings.IndexAny(tag, ",;"); i >= 0 {
		tag = tag[:i]
	}
	region := tag
	if i := strings.LastIndex(tag, "-"); i >= 0 {
		region = tag[i+1:]
	}
	switch region {
	case "GB", "UK":
		return domain.GBP
	case "MW", "NY":
		return domain.MWK
	}
	return def
}
