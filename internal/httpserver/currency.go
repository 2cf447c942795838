package httpserver

import (
	"strings"

	"github.com/gin-gonic/gin"

	"variantcart/internal/domain"
	"variantcart/internal/pricing"
)

const currencyHeader = "X-Currency"

// currency picks the active currency: explicit header, then query, then
// the Accept-Language locale. An explicit but unknown code is an error.
func (a *api) currency(c *gin.Context) (domain.Currency, error) {
	for _, raw := range []string{c.GetHeader(currencyHeader), c.Query("currency")} {
		if strings.TrimSpace(raw) != "" {
			return domain.ParseCurrency(raw)
		}
	}
	return pricing.CurrencyForLocale(c.GetHeader("Accept-Language"), a.deps.DefaultCurrency), nil
}
