package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrItemNotFound is returned by cart operations addressing a product that is not in the cart.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrOutOfStock is returned when a non pre-order item is added with no available stock.
	ErrOutOfStock = errors.New("out of stock")
	// ErrInvalidQuantity is returned for negative quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrUnsupportedCurrency is returned for currency codes other than MWK and GBP.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)
