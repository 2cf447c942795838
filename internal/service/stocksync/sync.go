// Package stocksync re-reads live catalog data for every product in a cart
// right before checkout and writes the refreshed variant, price and stock back.
package stocksync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"variantcart/internal/cart"
	"variantcart/internal/domain"
	"variantcart/internal/pricing"
	"variantcart/internal/variant"
)

var (
	// ErrStaleCart is returned when the cart was cleared or reloaded while fetches were in flight.
	ErrStaleCart = errors.New("cart changed during stock sync")
	// ErrNoData is recorded for a fetch that succeeded without returning a product.
	ErrNoData = errors.New("catalog returned no data")
)

// Defaults applied by New for zero Options fields.
const (
	DefaultConcurrency = 8
	DefaultTimeout     = 5 * time.Second
)

// Catalog is the read-only catalog accessor.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// Result is the live view of one cart product. A non-nil Err marks the
// product unvalidatable; its line is written back with zero stock. Clamped
// and Removed report what the stock write-back did to the cart line.
type Result struct {
	ProductID        string
	VariantID        string
	Price            float64
	Stock            int
	Err              error
	PreviousQuantity int
	Clamped          bool
	Removed          bool
}

// Unvalidatable reports whether the product could not be checked.
func (r Result) Unvalidatable() bool { return r.Err != nil }

// Options bounds the fan-out and the duration of each fetch.
type Options struct {
	Concurrency int
	Timeout     time.Duration
}

// Synchronizer refreshes cart lines from the live catalog.
type Synchronizer struct {
	catalog     Catalog
	prices      pricing.Resolver
	concurrency int
	timeout     time.Duration
	logger      logrus.FieldLogger
	tracer      trace.Tracer
}

// New builds a Synchronizer reading from catalog.
func New(catalog Catalog, prices pricing.Resolver, opts Options, logger logrus.FieldLogger) *Synchronizer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Synchronizer{
		catalog:     catalog,
		prices:      prices,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		logger:      logger,
		tracer:      otel.Tracer("variantcart/stocksync"),
	}
}

// Sync fetches every distinct product of the cart in parallel and waits for
// all of them. A failed or timed out fetch only affects its own product.
// Nothing is written back when ctx ends or the cart generation moves while
// fetches are in flight.
func (s *Synchronizer) Sync(ctx context.Context, store *cart.Store, currency domain.Currency) ([]Result, error) {
	generation := store.Generation()
	items := distinct(store.Items())

	results := make([]Result, len(items))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = s.fetch(ctx, item, currency)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		s.logger.WithError(err).Warn("stock sync: abandoned")
		return nil, err
	}
	if store.Generation() != generation {
		s.logger.WithField("cart_key", store.Key()).Warn("stock sync: discarding results for stale cart")
		return nil, ErrStaleCart
	}

	for i := range results {
		if results[i].Unvalidatable() {
			if err := writeZeroStock(ctx, store, &results[i]); err != nil {
				return nil, err
			}
			continue
		}
		if err := writeBack(ctx, store, &results[i], currency); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (s *Synchronizer) fetch(ctx context.Context, item domain.CartItem, currency domain.Currency) Result {
	ctx, span := s.tracer.Start(ctx, "stocksync.fetch", trace.WithAttributes(attribute.String("product.id", item.ProductID)))
	defer span.End()

	res := Result{ProductID: item.ProductID}
	product, err := s.get(ctx, item.ProductID)
	if err == nil && product == nil {
		err = ErrNoData
	}
	if err != nil {
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WithFields(logrus.Fields{"product_id": item.ProductID}).WithError(err).Warn("stock sync: fetch failed")
		return res
	}

	v := variant.Resolve(product.Variants, item.Selection)
	stock := product.Stock
	if v != nil {
		res.VariantID = v.ID
		stock = v.Stock
	}
	res.Stock = max(0, stock)
	res.Price = s.prices.Resolve(*product, v, currency)
	span.SetAttributes(attribute.String("variant.id", res.VariantID), attribute.Int("stock", res.Stock))
	return res
}

// get bounds a single fetch by the timeout even if the accessor ignores ctx.
func (s *Synchronizer) get(ctx context.Context, id string) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		product *domain.Product
		err     error
	}
	ch := make(chan outcome, 1)
	go func() {
		p, err := s.catalog.GetByID(ctx, id)
		ch <- outcome{p, err}
	}()
	select {
	case o := <-ch:
		return o.product, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s: %w", id, ctx.Err())
	}
}

func writeBack(ctx context.Context, store *cart.Store, res *Result, currency domain.Currency) error {
	before, ok := store.Item(res.ProductID)
	if !ok {
		// removed by the user while the fetch was in flight
		return nil
	}
	res.PreviousQuantity = before.Quantity

	steps := []func() error{
		func() error { return store.SetVariant(ctx, res.ProductID, res.VariantID) },
		func() error { return store.UpdateCachedPrice(ctx, res.ProductID, res.Price, currency) },
		func() error { return store.UpdateCachedStock(ctx, res.ProductID, res.Stock) },
	}
	for _, step := range steps {
		err := step()
		if errors.Is(err, domain.ErrItemNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrapf(err, "write back %s", res.ProductID)
		}
	}

	after, ok := store.Item(res.ProductID)
	switch {
	case !ok:
		res.Removed = true
	case after.Quantity < before.Quantity:
		res.Clamped = true
	}
	return nil
}

// writeZeroStock fails an unvalidatable line closed: it is treated as having
// nothing available, which removes it unless it is a pre-order.
func writeZeroStock(ctx context.Context, store *cart.Store, res *Result) error {
	before, ok := store.Item(res.ProductID)
	if !ok {
		return nil
	}
	res.PreviousQuantity = before.Quantity
	err := store.UpdateCachedStock(ctx, res.ProductID, 0)
	if errors.Is(err, domain.ErrItemNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "zero stock %s", res.ProductID)
	}
	if _, ok := store.Item(res.ProductID); !ok {
		res.Removed = true
	}
	return nil
}

func distinct(items []domain.CartItem) []domain.CartItem {
	seen := make(map[string]bool, len(items))
	out := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		out = append(out, item)
	}
	return out
}
