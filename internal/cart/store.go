// Package cart holds the cart state machine. Every transition is applied
// atomically and persisted through a key-value port before it becomes visible.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"variantcart/internal/domain"
)

// DefaultKey is the well-known key used for a single-cart deployment.
const DefaultKey = "cart"

// Port is the durable key-value store the cart persists into. Get returns
// domain.ErrNotFound when nothing has been stored under key yet.
type Port interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// AttributeChange updates one or more selected attributes; nil fields are left untouched.
type AttributeChange struct {
	Color     *string           `json:"color,omitempty"`
	Storage   *string           `json:"storage,omitempty"`
	Condition *domain.Condition `json:"condition,omitempty"`
}

// Store is the cart of one owner.
type Store struct {
	mu         sync.Mutex
	port       Port
	key        string
	logger     logrus.FieldLogger
	items      []domain.CartItem
	generation uint64
}

// Open restores the cart stored under key. A corrupt payload is discarded
// and the cart starts empty.
func Open(ctx context.Context, port Port, key string, logger logrus.FieldLogger) (*Store, error) {
	return restore(ctx, port, key, logger, false)
}

// restore loads the cart under key. With mustExist a key that was never
// written yields domain.ErrNotFound instead of an empty cart.
func restore(ctx context.Context, port Port, key string, logger logrus.FieldLogger, mustExist bool) (*Store, error) {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	s := &Store{port: port, key: key, logger: logger.WithField("cart_key", key), generation: 1}

	payload, err := port.Get(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound) && mustExist:
		return nil, err
	case errors.Is(err, domain.ErrNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read cart %s: %w", key, err)
	}
	var items []domain.CartItem
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &items); err != nil {
			s.logger.WithError(err).Warn("cart store: discarding corrupt persisted cart")
			items = nil
		}
	}
	s.items = sanitize(items)
	return s, nil
}

// Key returns the storage key of the cart.
func (s *Store) Key() string { return s.key }

// Generation changes whenever the cart is cleared or bulk-loaded. Work
// started against one generation must not be applied to another.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Item returns a copy of the line for productID.
func (s *Store) Item(productID string) (domain.CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.items, productID); i >= 0 {
		return s.items[i].Clone(), true
	}
	return domain.CartItem{}, false
}

// Add inserts item at quantity 1, or bumps the existing line by one up to
// its cached stock. Pre-orders are not capped.
func (s *Store) Add(ctx context.Context, item domain.CartItem) error {
	item.ProductID = strings.TrimSpace(item.ProductID)
	if item.ProductID == "" {
		return errors.New("product id required")
	}
	return s.apply(ctx, "add", false, func(items []domain.CartItem) ([]domain.CartItem, error) {
		if i := indexOf(items, item.ProductID); i >= 0 {
			existing := &items[i]
			next := existing.Quantity + 1
			if !existing.PreOrder && next > existing.Stock {
				next = existing.Stock
			}
			existing.Quantity = next
			return items, nil
		}
		item = normalizeItem(item)
		if !item.PreOrder && item.Stock <= 0 {
			return nil, domain.ErrOutOfStock
		}
		item.Quantity = 1
		return append(items, item), nil
	})
}

// Remove deletes the line for productID.
func (s *Store) Remove(ctx context.Context, productID string) error {
	return s.apply(ctx, "remove", false, func(items []domain.CartItem) ([]domain.CartItem, error) {
		i := indexOf(items, productID)
		if i < 0 {
			return nil, domain.ErrItemNotFound
		}
		return append(items[:i], items[i+1:]...), nil
	})
}

// SetQuantity clamps qty into [0, cached stock]. Zero removes the line unless it is a pre-order.
func (s *Store) SetQuantity(ctx context.Context, productID string, qty int) error {
	return s.apply(ctx, "set_quantity", false, func(items []domain.CartItem) ([]domain.CartItem, error) {
		i := indexOf(items, productID)
		if i < 0 {
			return nil, domain.ErrItemNotFound
		}
		if qty < 0 {
			qty = 0
		}
		if !items[i].PreOrder && qty > items[i].Stock {
			qty = items[i].Stock
		}
		if qty == 0 && !items[i].PreOrder {
			return append(items[:i], items[i+1:]...), nil
		}
		items[i].Quantity = qty
		return items, nil
	})
}

// UpdateAttribute changes the selected attributes of an existing line.
func (s *Store) UpdateAttribute(ctx context.Context, productID string, change AttributeChange) error {
	if change.Condition != nil && !change.Condition.Valid() {
		return fmt.Errorf("invalid condition %q", *change.Condition)
	}
	return s.apply(ctx, "update_attribute", false, func(items []domain.CartItem) ([]domain.CartItem, error) {
		i := indexOf(items, productID)
		if i < 0 {
			return nil, domain.ErrItemNotFound
		}
		if change.Color != nil {
			items[i].Selection.Color = strings.TrimSpace(*change.Color)
		}
		if change.Storage != nil {
			items[i].Selection.Storage = strings.TrimSpace(*change.Storage)
		}
		if change.Condition != nil {
			items[i].Selection.Condition = *change.Condition
		}
		return items, nil
	})
}

// UpdateCachedStock records the available stock and clamps the quantity
// down to it. A non pre-order line left with nothing available is removed.
func (s *Store) UpdateCachedStock(ctx context.Context, productID string, stock int) error {
	if stock < 0 {
		stock = 0
	}
	return s.apply(ctx, "update_stock", false, func(items []domain.CartItem) ([]domain.CartItem, error) {
		i := indexOf(items, productID)
		if i < 0 {
			return nil, domain.ErrItemNotFound
		}
		items[i].Stock = stock
		if items[i].PreOrder {
			return items, nil
		}
		if items[i].Quantity > stock {
			items[i].Quantity = stock
		}
		if stock == 0 && items[i].Quantity == 0 {
			return append(items[:i], items[i+1:]...), nil
		}
		return items, nil
	})
}

// UpdateCachedPrice records the unit price of the line in currency c.
// Non-finite and negative prices are cached as zero.
func (s *Store) UpdateCachedPrice(ctx context.Context, productID string, price float64, c domain.Currency) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedCurrency, c)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		price = 0
	}
	return s.apply(ctx, "update_price", false, func(items []domain.CartItem) ([]domain.CartItem, error) {
		i := indexOf(items, productID)
		if i < 0 {
			return nil, domain.ErrItemNotFound
		}
		if items[i].Prices == nil {
			items[i].Prices = make(map[domain.Currency]float64, len(domain.Currencies))
		}
		items[i].Prices[c] = price
		return items, nil
	})
}

// SetVariant records the variant the line currently resolves to. An empty
// id means the product-level price and stock apply.
func (s *Store) SetVariant(ctx context.Context, productID, variantID string) error {
	return s.apply(ctx, "set_variant", false, func(items []domain.CartItem) ([]domain.CartItem, error) {
		i := indexOf(items, productID)
		if i < 0 {
			return nil, domain.ErrItemNotFound
		}
		items[i].VariantID = variantID
		return items, nil
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	return s.apply(ctx, "clear", true, func([]domain.CartItem) ([]domain.CartItem, error) {
		return nil, nil
	})
}

// Load replaces the cart with items. Duplicate product ids keep their first
// line and quantities are clamped to the cart invariant.
func (s *Store) Load(ctx context.Context, items []domain.CartItem) error {
	return s.apply(ctx, "load", true, func([]domain.CartItem) ([]domain.CartItem, error) {
		return sanitize(cloneItems(items)), nil
	})
}

func (s *Store) apply(ctx context.Context, op string, bump bool, fn func([]domain.CartItem) ([]domain.CartItem, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(cloneItems(s.items))
	if err != nil {
		return err
	}
	if err := s.persist(ctx, next); err != nil {
		s.logger.WithError(err).WithField("op", op).Error("cart store: persist failed")
		return err
	}
	s.items = next
	if bump {
		s.generation++
	}
	return nil
}

func (s *Store) persist(ctx context.Context, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.port.Set(ctx, s.key, payload); err != nil {
		return fmt.Errorf("write cart %s: %w", s.key, err)
	}
	return nil
}

func sanitize(items []domain.CartItem) []domain.CartItem {
	var out []domain.CartItem
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = normalizeItem(item)
		if item.ProductID == "" || seen[item.ProductID] {
			continue
		}
		if !item.PreOrder {
			if item.Quantity > item.Stock {
				item.Quantity = item.Stock
			}
			if item.Quantity == 0 {
				continue
			}
		}
		seen[item.ProductID] = true
		out = append(out, item)
	}
	return out
}

func normalizeItem(item domain.CartItem) domain.CartItem {
	item.ProductID = strings.TrimSpace(item.ProductID)
	if item.Quantity < 0 {
		item.Quantity = 0
	}
	if item.Stock < 0 {
		item.Stock = 0
	}
	if len(item.Prices) == 0 {
		item.Prices = nil
	}
	return item
}

func indexOf(items []domain.CartItem, productID string) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.CartItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
