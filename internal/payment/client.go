// Package payment talks to the external checkout-session service.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"variantcart/internal/domain"
)

const DefaultTimeout = 10 * time.Second

// ErrNoRedirect is returned when the session service answers without a redirect target.
var ErrNoRedirect = errors.New("payment session has no redirect url")

// LineItem is one billable line sent to the session service. Fee
// pseudo-items carry no variant id and no attributes.
type LineItem struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	UnitPrice  float64           `json:"unitPrice"`
	Quantity   int               `json:"quantity"`
	VariantID  string            `json:"variantId,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// SessionRequest is the payload of a checkout session.
type SessionRequest struct {
	CartID   string          `json:"cartId"`
	Currency domain.Currency `json:"currency"`
	Items    []LineItem      `json:"items"`
	Total    float64         `json:"total"`
}

// Session is a created checkout session.
type Session struct {
	ID          string `json:"id,omitempty"`
	RedirectURL string `json:"redirectUrl"`
}

// SessionCreator is implemented by Client and by test doubles.
type SessionCreator interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
}

// Client talks to the payment provider over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logrus.FieldLogger
}

// NewClient builds a Client for baseURL; a non-positive timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger logrus.FieldLogger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// CreateSession posts the finalized line items. Every call carries a fresh
// idempotency key so a retried attempt is a new session.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Session{}, fmt.Errorf("encode session request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("build session request: %w", err)
	}
	key := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", key)

	log := c.logger.WithFields(logrus.Fields{"cart_id": req.CartID, "idempotency_key": key})
	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.WithError(err).Warn("payment: session request failed")
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.WithField("status", resp.StatusCode).Warn("payment: session rejected")
		return Session{}, fmt.Errorf("create session: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out Session
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if strings.TrimSpace(out.RedirectURL) == "" {
		return Session{}, ErrNoRedirect
	}
	log.WithField("session_id", out.ID).Info("payment: session created")
	return out, nil
}
