package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"variantcart/internal/cart"
	"variantcart/internal/domain"
	"variantcart/internal/payment"
	"variantcart/internal/service/stocksync"
)

var (
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrSessionFailed      = errors.New("payment session failed")
	ErrEmptyCart          = errors.New("cart is empty")
)

// State is a step of a single checkout attempt.
type State string

const (
	StateIdle             State = "idle"
	StateValidating       State = "validating"
	StateIssuesFound      State = "issues_found"
	StateClean            State = "clean"
	StateSessionRequested State = "session_requested"
	StateSessionCreated   State = "session_created"
	StateRedirecting      State = "redirecting"
	StateSessionFailed    State = "session_failed"
)

// Request carries the options of one checkout attempt.
type Request struct {
	Currency domain.Currency
}

// Outcome describes one attempt. States lists every state visited, starting
// and ending at idle.
type Outcome struct {
	OK          bool                   `json:"ok"`
	Issues      []domain.CheckoutIssue `json:"issues"`
	RedirectURL string                 `json:"redirectUrl,omitempty"`
	States      []State                `json:"states"`
}

type cartSource interface {
	Get(ctx context.Context, cartID string) (*cart.Store, error)
}

type syncer interface {
	Sync(ctx context.Context, store *cart.Store, currency domain.Currency) ([]stocksync.Result, error)
}

// Service runs checkout attempts, one at a time per cart.
type Service struct {
	carts     cartSource
	sync      syncer
	validator *Validator
	payments  payment.SessionCreator
	fees      map[domain.Currency]Fees
	logger    logrus.FieldLogger
	tracer    trace.Tracer

	mu     sync.Mutex
	active map[string]bool
}

// New builds a checkout Service. fees lists the surcharges billed per currency.
func New(carts cartSource, stock syncer, payments payment.SessionCreator, fees map[domain.Currency]Fees, logger logrus.FieldLogger) *Service {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Service{
		carts:     carts,
		sync:      stock,
		validator: NewValidator(logger),
		payments:  payments,
		fees:      fees,
		logger:    logger,
		tracer:    otel.Tracer("variantcart/checkout"),
		active:    make(map[string]bool),
	}
}

// Attempt runs sync, validation and session creation for cartID. Issues are
// returned in the Outcome with a nil error; the corrections they describe
// stay applied. The cart is cleared only after a session was created.
func (s *Service) Attempt(ctx context.Context, cartID string, req Request) (Outcome, error) {
	if !req.Currency.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedCurrency, req.Currency)
	}
	if !s.begin(cartID) {
		return Outcome{}, ErrCheckoutInProgress
	}
	defer s.end(cartID)

	ctx, span := s.tracer.Start(ctx, "checkout.attempt", trace.WithAttributes(
		attribute.String("cart.id", cartID),
		attribute.String("currency", string(req.Currency)),
	))
	defer span.End()

	out := Outcome{Issues: []domain.CheckoutIssue{}, States: []State{StateIdle}}
	to := func(st State) { out.States = append(out.States, st) }
	fail := func(err error) (Outcome, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}
	log := s.logger.WithFields(logrus.Fields{"cart_id": cartID, "currency": req.Currency})

	store, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return fail(pkgerrors.Wrap(err, "open cart"))
	}
	if len(store.Items()) == 0 {
		return fail(ErrEmptyCart)
	}

	to(StateValidating)
	results, err := s.sync.Sync(ctx, store, req.Currency)
	if err != nil {
		to(StateIdle)
		return fail(pkgerrors.Wrap(err, "stock sync"))
	}
	report, err := s.validator.Validate(ctx, store, req.Currency, results)
	if err != nil {
		to(StateIdle)
		return fail(pkgerrors.Wrap(err, "validate cart"))
	}
	if !report.OK {
		to(StateIssuesFound)
		to(StateIdle)
		out.Issues = report.Issues
		span.SetAttributes(attribute.Int("issues", len(report.Issues)))
		return out, nil
	}

	to(StateClean)
	lines := BuildLineItems(store.Items(), req.Currency, s.fees[req.Currency])
	to(StateSessionRequested)
	session, err := s.payments.CreateSession(ctx, payment.SessionRequest{
		CartID:   cartID,
		Currency: req.Currency,
		Items:    lines,
		Total:    Sum(lines),
	})
	if err != nil {
		to(StateSessionFailed)
		to(StateIdle)
		log.WithError(err).Error("checkout: session creation failed")
		return fail(fmt.Errorf("%w: %w", ErrSessionFailed, err))
	}

	to(StateSessionCreated)
	to(StateRedirecting)
	if err := store.Clear(ctx); err != nil {
		// the session exists; the customer is redirected regardless
		log.WithError(err).Error("checkout: clear cart after session")
	}
	to(StateIdle)
	out.OK = true
	out.RedirectURL = session.RedirectURL
	log.WithField("session_id", session.ID).Info("checkout: redirecting")
	return out, nil
}

func (s *Service) begin(cartID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[cartID] {
		return false
	}
	s.active[cartID] = true
	return true
}

func (s *Service) end(cartID string) {
	s.mu.Lock()
	delete(s.active, cartID)
	s.mu.Unlock()
}
