package domain

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code supported by the storefront.
type Currency string

const (
	MWK Currency = "MWK"
	GBP Currency = "GBP"
)

// Currencies lists every supported currency in display order.
var Currencies = []Currency{MWK, GBP}

// ParseCurrency accepts any casing and surrounding whitespace.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case MWK:
		return MWK, nil
	case GBP:
		return GBP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, s)
}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	return c == MWK || c == GBP
}
