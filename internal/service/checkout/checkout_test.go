package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"variantcart/internal/cart"
	"variantcart/internal/domain"
	"variantcart/internal/payment"
	"variantcart/internal/pricing"
	"variantcart/internal/repository/kv"
	"variantcart/internal/service/stocksync"
)

type stubCatalog struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	errs     map[string]error
}

func (s *stubCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[id]; err != nil {
		return nil, err
	}
	return s.products[id], nil
}

func (s *stubCatalog) set(p *domain.Product) {
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
}

type stubPayments struct {
	mu      sync.Mutex
	err     error
	calls   []payment.SessionRequest
	entered chan struct{}
	release chan struct{}
}

func (s *stubPayments) CreateSession(_ context.Context, req payment.SessionRequest) (payment.Session, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if s.err != nil {
		return payment.Session{}, s.err
	}
	return payment.Session{ID: "sess", RedirectURL: "https://pay.example/sess"}, nil
}

type fixture struct {
	catalog  *stubCatalog
	payments *stubPayments
	carts    *cart.Registry
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		catalog:  &stubCatalog{products: map[string]*domain.Product{}, errs: map[string]error{}},
		payments: &stubPayments{},
		carts:    cart.NewRegistry(kv.NewMemory(), 0, nil),
	}
	syncer := stocksync.New(fx.catalog, pricing.New(2500), stocksync.Options{Timeout: time.Second}, nil)
	fees := map[domain.Currency]Fees{domain.MWK: {Delivery: 1500}}
	fx.svc = New(fx.carts, syncer, fx.payments, fees, nil)
	return fx
}

func (fx *fixture) load(t *testing.T, cartID string, items ...domain.CartItem) *cart.Store {
	t.Helper()
	store, err := fx.carts.Create(context.Background(), cartID)
	require.NoError(t, err)
	require.NoError(t, store.Load(context.Background(), items))
	return store
}

func f(v float64) *float64 { return &v }

func kinds(issues []domain.CheckoutIssue) []domain.IssueKind {
	out := make([]domain.IssueKind, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Kind)
	}
	return out
}

func TestAttemptRemovesOutOfStockExactVariant(t *testing.T) {
	fx := newFixture(t)
	fx.catalog.set(&domain.Product{
		ID: "phone",
		Variants: []domain.Variant{
			{ID: "v-new", Storage: "128GB", Condition: domain.ConditionNew, Stock: 0, Active: true, Prices: domain.Prices{MWK: f(450000)}},
			{ID: "v-good", Storage: "128GB", Condition: domain.ConditionGood, Stock: 3, Active: true, Prices: domain.Prices{MWK: f(380000)}},
		},
	})
	store := fx.load(t, "c1", domain.CartItem{
		ProductID: "phone",
		Selection: domain.Selection{Storage: "128GB", Condition: domain.ConditionNew},
		Quantity:  1,
		Stock:     1,
		Prices:    map[domain.Currency]float64{domain.MWK: 450000},
	})

	out, err := fx.svc.Attempt(context.Background(), "c1", Request{Currency: domain.MWK})
	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.Equal(t, []domain.IssueKind{domain.IssueRemoved}, kinds(out.Issues))
	assert.Empty(t, store.Items())
	assert.Equal(t, []State{StateIdle, StateValidating, StateIssuesFound, StateIdle}, out.States)
	assert.Empty(t, fx.payments.calls)
}

func TestAttemptZeroGBPPriceBlocks(t *testing.T) {
	fx := newFixture(t)
	fx.catalog.set(&domain.Product{ID: "case", Stock: 4, Prices: domain.Prices{MWK: f(45000), GBP: f(0)}})
	store := fx.load(t, "c1", domain.CartItem{ProductID: "case", Quantity: 1, Stock: 4,
		Prices: map[domain.Currency]float64{domain.MWK: 45000, domain.GBP: 20}})

	out, err := fx.svc.Attempt(context.Background(), "c1", Request{Currency: domain.GBP})
	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.Equal(t, []domain.IssueKind{domain.IssuePriceInvalid}, kinds(out.Issues))
	item, ok := store.Item("case")
	require.True(t, ok)
	assert.Equal(t, 0.0, item.UnitPrice(domain.GBP))
}

func TestAttemptClampsThenSucceeds(t *testing.T) {
	fx := newFixture(t)
	fx.catalog.set(&domain.Product{ID: "charger", Stock: 2, Prices: domain.Prices{MWK: f(1000)}})
	store := fx.load(t, "c1", domain.CartItem{ProductID: "charger", Name: "Charger", Quantity: 5, Stock: 5,
		Prices: map[domain.Currency]float64{domain.MWK: 1000}})

	out, err := fx.svc.Attempt(context.Background(), "c1", Request{Currency: domain.MWK})
	require.NoError(t, err)
	assert.False(t, out.OK)
	require.Len(t, out.Issues, 1)
	assert.Equal(t, domain.IssueQuantityClamped, out.Issues[0].Kind)
	assert.Equal(t, "quantity reduced from 5 to 2", out.Issues[0].Message)
	item, _ := store.Item("charger")
	assert.Equal(t, 2, item.Quantity)

	out, err = fx.svc.Attempt(context.Background(), "c1", Request{Currency: domain.MWK})
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Empty(t, out.Issues)
	assert.Equal(t, "https://pay.example/sess", out.RedirectURL)
	assert.Equal(t, []State{StateIdle, StateValidating, StateClean, StateSessionRequested, StateSessionCreated, StateRedirecting, StateIdle}, out.States)
	assert.Empty(t, store.Items())

	require.Len(t, fx.payments.calls, 1)
	req := fx.payments.calls[0]
	assert.Equal(t, domain.MWK, req.Currency)
	assert.Equal(t, []payment.LineItem{
		{ID: "charger", Name: "Charger", UnitPrice: 1000, Quantity: 2},
		{ID: DeliveryFeeID, Name: "Delivery", UnitPrice: 1500, Quantity: 1},
	}, req.Items)
	assert.Equal(t, 3500.0, req.Total)
}

func TestAttemptProductWithoutVariants(t *testing.T) {
	fx := newFixture(t)
	fx.catalog.set(&domain.Product{ID: "cable", Stock: 9, Prices: domain.Prices{MWK: f(5000)}})
	fx.load(t, "c1", domain.CartItem{ProductID: "cable", Quantity: 1, Stock: 9,
		Selection: domain.Selection{Color: "Red", Storage: "64GB", Condition: domain.ConditionFair},
		Prices:    map[domain.Currency]float64{domain.GBP: 1}})

	out, err := fx.svc.Attempt(context.Background(), "c1", Request{Currency: domain.GBP})
	require.NoError(t, err)
	assert.True(t, out.OK)
	require.Len(t, fx.payments.calls, 1)
	assert.Equal(t, 2.0, fx.payments.calls[0].Items[0].UnitPrice)
}

func TestAttemptUnvalidatableRemovesAndBlocks(t *testing.T) {
	fx := newFixture(t)
	fx.catalog.errs["gone"] = errors.New("upstream 503")
	fx.catalog.set(&domain.Product{ID: "cable", Stock: 9, Prices: domain.Prices{MWK: f(5000)}})
	store := fx.load(t, "c1",
		domain.CartItem{ProductID: "gone", Quantity: 2, Stock: 5, Prices: map[domain.Currency]float64{domain.MWK: 10}},
		domain.CartItem{ProductID: "cable", Quantity: 1, Stock: 9, Prices: map[domain.Currency]float64{domain.MWK: 5000}},
	)

	out, err := fx.svc.Attempt(context.Background(), "c1", Request{Currency: domain.MWK})
	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.Equal(t, []domain.IssueKind{domain.IssueRemoved, domain.IssueUnvalidatable}, kinds(out.Issues))
	assert.Equal(t, "gone", out.Issues[0].ProductID)
	assert.Equal(t, "gone", out.Issues[1].ProductID)
	_, ok := store.Item("gone")
	assert.False(t, ok)
	assert.Len(t, store.Items(), 1)
	assert.Empty(t, fx.payments.calls)
}

func TestAttemptSessionFailureKeepsCart(t *testing.T) {
	fx := newFixture(t)
	fx.payments.err = errors.New("connection refused")
	fx.catalog.set(&domain.Product{ID: "cable", Stock: 9, Prices: domain.Prices{MWK: f(5000)}})
	store := fx.load(t, "c1", domain.CartItem{ProductID: "cable", Quantity: 1, Stock: 9})

	out, err := fx.svc.Attempt(context.Background(), "c1", Request{Currency: domain.MWK})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionFailed)
	assert.False(t, out.OK)
	assert.Equal(t, []State{StateIdle, StateValidating, StateClean, StateSessionRequested, StateSessionFailed, StateIdle}, out.States)
	assert.Len(t, store.Items(), 1)
}

func TestAttemptEmptyCart(t *testing.T) {
	fx := newFixture(t)
	fx.load(t, "empty")
	_, err := fx.svc.Attempt(context.Background(), "empty", Request{Currency: domain.MWK})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestAttemptUnknownCart(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.Attempt(context.Background(), "never-created", Request{Currency: domain.MWK})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttemptRejectsUnknownCurrency(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.Attempt(context.Background(), "c1", Request{Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
}

func TestAttemptRefusesConcurrentAttempt(t *testing.T) {
	fx := newFixture(t)
	fx.payments.entered = make(chan struct{})
	fx.payments.release = make(chan struct{})
	fx.catalog.set(&domain.Product{ID: "cable", Stock: 9, Prices: domain.Prices{MWK: f(5000)}})
	fx.load(t, "c1", domain.CartItem{ProductID: "cable", Quantity: 1, Stock: 9})

	done := make(chan error, 1)
	go func() {
		_, err := fx.svc.Attempt(context.Background(), "c1", Request{Currency: domain.MWK})
		done <- err
	}()
	<-fx.payments.entered

	_, err := fx.svc.Attempt(context.Background(), "c1", Request{Currency: domain.MWK})
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	close(fx.payments.release)
	require.NoError(t, <-done)
}

func TestValidateWithoutSyncResults(t *testing.T) {
	ctx := context.Background()
	store, err := cart.Open(ctx, kv.NewMemory(), cart.DefaultKey, nil)
	require.NoError(t, err)
	require.NoError(t, store.Load(ctx, []domain.CartItem{
		{ProductID: "a", Quantity: 1, Stock: 1, Prices: map[domain.Currency]float64{domain.MWK: 10}},
		{ProductID: "pre", Quantity: 0, Stock: 0, PreOrder: true, Prices: map[domain.Currency]float64{domain.MWK: 10}},
	}))
	results := []stocksync.Result{{ProductID: "pre", Price: 10}}

	report, err := NewValidator(nil).Validate(ctx, store, domain.MWK, results)
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Equal(t, []domain.CheckoutIssue{
		{Kind: domain.IssueRemoved, ProductID: "a", Message: "could not be checked and was removed"},
		{Kind: domain.IssueUnvalidatable, ProductID: "a", Message: "not checked against live stock"},
	}, report.Issues)
	require.Len(t, store.Items(), 1)
	assert.Equal(t, "pre", store.Items()[0].ProductID)
}

func TestValidateCleanCartIncludingPreOrder(t *testing.T) {
	ctx := context.Background()
	store, err := cart.Open(ctx, kv.NewMemory(), cart.DefaultKey, nil)
	require.NoError(t, err)
	require.NoError(t, store.Load(ctx, []domain.CartItem{
		{ProductID: "ok", Quantity: 1, Stock: 3, Prices: map[domain.Currency]float64{domain.MWK: 10}},
		{ProductID: "pre", Quantity: 4, Stock: 0, PreOrder: true, Prices: map[domain.Currency]float64{domain.MWK: 10}},
	}))
	results := []stocksync.Result{{ProductID: "ok"}, {ProductID: "pre"}}

	report, err := NewValidator(nil).Validate(ctx, store, domain.MWK, results)
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Empty(t, report.Issues)
}

func TestBuildLineItems(t *testing.T) {
	items := []domain.CartItem{
		{ProductID: "phone", VariantID: "v1", Name: "Phone", Quantity: 2,
			Selection: domain.Selection{Color: "Black", Storage: "128GB", Condition: domain.ConditionGood},
			Prices:    map[domain.Currency]float64{domain.GBP: 199.99}},
		{ProductID: "pre", Quantity: 0, PreOrder: true, Prices: map[domain.Currency]float64{domain.GBP: 10}},
	}
	lines := BuildLineItems(items, domain.GBP, Fees{Delivery: 5, Subscription: 2.5})
	assert.Equal(t, []payment.LineItem{
		{ID: "phone", Name: "Phone", UnitPrice: 199.99, Quantity: 2, VariantID: "v1",
			Attributes: map[string]string{"color": "Black", "storage": "128GB", "condition": "good"}},
		{ID: "pre", Name: "pre", UnitPrice: 10, Quantity: 1},
		{ID: DeliveryFeeID, Name: "Delivery", UnitPrice: 5, Quantity: 1},
		{ID: SubscriptionFeeID, Name: "Subscription", UnitPrice: 2.5, Quantity: 1},
	}, lines)
	assert.Equal(t, 417.48, Sum(lines))
}
