package domain

// Selection is the attribute choice made for a product. Color and Storage
// may be empty when the product does not vary by them.
type Selection struct {
	Color     string    `json:"color,omitempty"`
	Storage   string    `json:"storage,omitempty"`
	Condition Condition `json:"condition"`
}

// CartItem is one line of the cart. Quantity never exceeds Stock unless
// PreOrder is set, in which case Quantity may be 0 and still counts as one unit.
type CartItem struct {
	ProductID string               `json:"productId"`
	VariantID string               `json:"variantId,omitempty"`
	Name      string               `json:"name,omitempty"`
	Selection Selection            `json:"selection"`
	Quantity  int                  `json:"quantity"`
	Prices    map[Currency]float64 `json:"prices,omitempty"`
	Stock     int                  `json:"stock"`
	PreOrder  bool                 `json:"isPreOrder"`
}

// UnitPrice returns the cached price for c, zero when none is cached.
func (i CartItem) UnitPrice(c Currency) float64 {
	return i.Prices[c]
}

// BillableQuantity is the quantity that contributes to totals.
func (i CartItem) BillableQuantity() int {
	if i.PreOrder && i.Quantity < 1 {
		return 1
	}
	return i.Quantity
}

// Clone returns a deep copy.
func (i CartItem) Clone() CartItem {
	out := i
	if i.Prices != nil {
		out.Prices = make(map[Currency]float64, len(i.Prices))
		for k, v := range i.Prices {
			out.Prices[k] = v
		}
	}
	return out
}
