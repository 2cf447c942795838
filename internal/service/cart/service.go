package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	cartstore "variantcart/internal/cart"
	"variantcart/internal/domain"
	"variantcart/internal/pricing"
	"variantcart/internal/variant"
)

// ErrInvalidInput marks a malformed request.
var ErrInvalidInput = errors.New("invalid input")

var conditionReplacer = strings.NewReplacer(" ", "_", "-", "_")

type Service struct {
	carts    cartSource
	products productRepo
	prices   pricing.Resolver
	logger   logrus.FieldLogger
}

type cartSource interface {
	Create(ctx context.Context, cartID string) (*cartstore.Store, error)
	Get(ctx context.Context, cartID string) (*cartstore.Store, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(carts cartSource, products productRepo, prices pricing.Resolver, logger logrus.FieldLogger) *Service {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Service{carts: carts, products: products, prices: prices, logger: logger}
}

// View is a cart with its totals in one currency.
type View struct {
	ID     string            `json:"id"`
	Items  []domain.CartItem `json:"items"`
	Totals cartstore.Totals  `json:"totals"`
}

type UpdateInput struct {
	Actions []UpdateAction `json:"actions"`
}

type UpdateAction struct {
	Action    string  `json:"action"`
	ProductID string  `json:"productId,omitempty"`
	Quantity  int     `json:"quantity,omitempty"`
	Color     *string `json:"color,omitempty"`
	Storage   *string `json:"storage,omitempty"`
	Condition *string `json:"condition,omitempty"`
	PreOrder  bool    `json:"isPreOrder,omitempty"`
}

// ProductOptions is what a variant picker shows for a selection.
type ProductOptions struct {
	Selection domain.Selection `json:"selection"`
	Options   variant.Options  `json:"options"`
	Variant   *domain.Variant  `json:"variant,omitempty"`
	Price     float64          `json:"price"`
	Currency  domain.Currency  `json:"currency"`
	Stock     int              `json:"stock"`
}

// Create starts an empty cart under a fresh id.
func (s *Service) Create(ctx context.Context, currency domain.Currency) (View, error) {
	cartID := uuid.NewString()
	store, err := s.carts.Create(ctx, cartID)
	if err != nil {
		return View{}, pkgerrors.Wrap(err, "create cart")
	}
	return view(cartID, store, currency), nil
}

func (s *Service) Get(ctx context.Context, cartID string, currency domain.Currency) (View, error) {
	store, err := s.store(ctx, cartID)
	if err != nil {
		return View{}, err
	}
	return view(cartID, store, currency), nil
}

func (s *Service) Clear(ctx context.Context, cartID string) error {
	store, err := s.store(ctx, cartID)
	if err != nil {
		return err
	}
	return store.Clear(ctx)
}

// Update applies actions in order and stops at the first failure; earlier
// actions stay applied.
func (s *Service) Update(ctx context.Context, cartID string, currency domain.Currency, in UpdateInput) (View, error) {
	if len(in.Actions) == 0 {
		return View{}, fmt.Errorf("%w: actions required", ErrInvalidInput)
	}
	store, err := s.store(ctx, cartID)
	if err != nil {
		return View{}, err
	}

	for _, action := range in.Actions {
		productID := strings.TrimSpace(action.ProductID)
		if productID == "" {
			return View{}, fmt.Errorf("%w: productId required", ErrInvalidInput)
		}
		switch strings.ToLower(strings.TrimSpace(action.Action)) {
		case "addlineitem":
			err = s.add(ctx, store, productID, action)
		case "removelineitem":
			err = store.Remove(ctx, productID)
		case "changelineitemquantity":
			if action.Quantity < 0 {
				return View{}, domain.ErrInvalidQuantity
			}
			err = store.SetQuantity(ctx, productID, action.Quantity)
		case "setlineitemattribute":
			err = s.changeAttribute(ctx, store, productID, action)
		default:
			return View{}, fmt.Errorf("%w: unsupported action %q", ErrInvalidInput, action.Action)
		}
		if err != nil {
			return View{}, err
		}
	}
	return view(cartID, store, currency), nil
}

// Options resolves the picker state of productID for sel.
func (s *Service) Options(ctx context.Context, productID string, sel domain.Selection, currency domain.Currency) (ProductOptions, error) {
	product, err := s.product(ctx, productID)
	if err != nil {
		return ProductOptions{}, err
	}
	if sel.Condition == "" {
		sel.Condition = s.defaultCondition(product, sel.Storage)
	}
	v := variant.Resolve(product.Variants, sel)
	return ProductOptions{
		Selection: sel,
		Options:   variant.OptionsFor(product.Variants, sel),
		Variant:   v,
		Price:     s.prices.Resolve(*product, v, currency),
		Currency:  currency,
		Stock:     liveStock(product, v),
	}, nil
}

func (s *Service) add(ctx context.Context, store *cartstore.Store, productID string, action UpdateAction) error {
	product, err := s.product(ctx, productID)
	if err != nil {
		return err
	}
	sel := domain.Selection{}
	if action.Color != nil {
		sel.Color = strings.TrimSpace(*action.Color)
	}
	if action.Storage != nil {
		sel.Storage = strings.TrimSpace(*action.Storage)
	}
	if action.Condition != nil {
		c, err := parseCondition(*action.Condition)
		if err != nil {
			return err
		}
		sel.Condition = c
	} else {
		sel.Condition = s.defaultCondition(product, sel.Storage)
	}

	v := variant.Resolve(product.Variants, sel)
	item := domain.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Selection: sel,
		Prices:    s.prices.PricesFor(*product, v),
		Stock:     liveStock(product, v),
		PreOrder:  action.PreOrder,
	}
	if v != nil {
		item.VariantID = v.ID
	}
	if err := store.Add(ctx, item); err != nil {
		return err
	}
	if action.Quantity > 1 {
		current, _ := store.Item(product.ID)
		return store.SetQuantity(ctx, product.ID, current.Quantity+action.Quantity-1)
	}
	return nil
}

// changeAttribute stores the new selection, then re-resolves the variant
// and refreshes the cached variant, prices and stock of the line.
func (s *Service) changeAttribute(ctx context.Context, store *cartstore.Store, productID string, action UpdateAction) error {
	change := cartstore.AttributeChange{Color: action.Color, Storage: action.Storage}
	if action.Condition != nil {
		c, err := parseCondition(*action.Condition)
		if err != nil {
			return err
		}
		change.Condition = &c
	}
	if err := store.UpdateAttribute(ctx, productID, change); err != nil {
		return err
	}

	product, err := s.product(ctx, productID)
	if err != nil {
		return err
	}
	item, ok := store.Item(productID)
	if !ok {
		return domain.ErrItemNotFound
	}
	sel := item.Selection
	if change.Storage != nil && change.Condition == nil {
		sel = variant.Reselect(product.Variants, sel)
		if sel.Condition != item.Selection.Condition {
			if err := store.UpdateAttribute(ctx, productID, cartstore.AttributeChange{Condition: &sel.Condition}); err != nil {
				return err
			}
		}
	}

	v := variant.Resolve(product.Variants, sel)
	variantID := ""
	if v != nil {
		variantID = v.ID
	}
	if err := store.SetVariant(ctx, productID, variantID); err != nil {
		return err
	}
	for c, price := range s.prices.PricesFor(*product, v) {
		if err := store.UpdateCachedPrice(ctx, productID, price, c); err != nil {
			return err
		}
	}
	return store.UpdateCachedStock(ctx, productID, liveStock(product, v))
}

func (s *Service) store(ctx context.Context, cartID string) (*cartstore.Store, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, fmt.Errorf("%w: cart id required", ErrInvalidInput)
	}
	store, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open cart %s", cartID)
	}
	return store, nil
}

func (s *Service) product(ctx context.Context, id string) (*domain.Product, error) {
	if s.products == nil {
		return nil, errors.New("product repository unavailable")
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

// defaultCondition picks the first in-stock condition, or new when nothing is in stock.
func (s *Service) defaultCondition(p *domain.Product, storage string) domain.Condition {
	if c, ok := variant.FirstInStockCondition(p.Variants, storage); ok {
		return c
	}
	return domain.ConditionNew
}

func parseCondition(raw string) (domain.Condition, error) {
	c := domain.Condition(conditionReplacer.Replace(strings.ToLower(strings.TrimSpace(raw))))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown condition %q", ErrInvalidInput, raw)
	}
	return c, nil
}

func liveStock(p *domain.Product, v *domain.Variant) int {
	if v != nil {
		return max(0, v.Stock)
	}
	return max(0, p.Stock)
}

func view(cartID string, store *cartstore.Store, currency domain.Currency) View {
	items := store.Items()
	if items == nil {
		items = []domain.CartItem{}
	}
	return View{ID: cartID, Items: items, Totals: cartstore.Total(items, currency)}
}
