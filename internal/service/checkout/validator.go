// Package checkout validates a synced cart and drives one checkout attempt
// through to the payment session.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"variantcart/internal/cart"
	"variantcart/internal/domain"
	"variantcart/internal/service/stocksync"
)

// Report is the outcome of validation. OK holds only when Issues is empty,
// including issues whose correction was already applied to the cart.
type Report struct {
	OK     bool                   `json:"ok"`
	Issues []domain.CheckoutIssue `json:"issues"`
}

// Validator checks a synced cart before a payment session is requested.
type Validator struct {
	logger logrus.FieldLogger
}

// NewValidator builds a Validator; a nil logger discards output.
func NewValidator(logger logrus.FieldLogger) *Validator {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Validator{logger: logger}
}

// Validate walks the post-sync cart item by item. Stock problems are
// corrected in the store and reported; unpriced items only block.
// Unvalidatable items count as out of stock and always block. A cart line
// without a sync result is unvalidatable.
func (v *Validator) Validate(ctx context.Context, store *cart.Store, currency domain.Currency, results []stocksync.Result) (Report, error) {
	issues := []domain.CheckoutIssue{}
	checked := make(map[string]bool, len(results))

	for _, res := range results {
		checked[res.ProductID] = true
		switch {
		case res.Unvalidatable():
			if res.Removed {
				issues = append(issues, issue(domain.IssueRemoved, res.ProductID, "could not be checked and was removed"))
			}
			issues = append(issues, issue(domain.IssueUnvalidatable, res.ProductID, "could not confirm live stock and price"))
			continue
		case res.Removed:
			issues = append(issues, issue(domain.IssueRemoved, res.ProductID, "no longer in stock and was removed"))
			continue
		}
		item, ok := store.Item(res.ProductID)
		if !ok {
			continue
		}
		found, err := v.check(ctx, store, item, currency, res.Clamped, res.PreviousQuantity)
		if err != nil {
			return Report{}, err
		}
		issues = append(issues, found...)
	}

	for _, item := range store.Items() {
		if checked[item.ProductID] {
			continue
		}
		if !item.PreOrder {
			if err := store.Remove(ctx, item.ProductID); err != nil && !errors.Is(err, domain.ErrItemNotFound) {
				return Report{}, pkgerrors.Wrapf(err, "remove %s", item.ProductID)
			}
			issues = append(issues, issue(domain.IssueRemoved, item.ProductID, "could not be checked and was removed"))
		}
		issues = append(issues, issue(domain.IssueUnvalidatable, item.ProductID, "not checked against live stock"))
	}

	if len(issues) > 0 {
		v.logger.WithFields(logrus.Fields{"cart_key": store.Key(), "issues": len(issues)}).Info("checkout: validation found issues")
	}
	return Report{OK: len(issues) == 0, Issues: issues}, nil
}

func (v *Validator) check(ctx context.Context, store *cart.Store, item domain.CartItem, currency domain.Currency, clamped bool, previous int) ([]domain.CheckoutIssue, error) {
	var out []domain.CheckoutIssue

	if item.Stock <= 0 && !item.PreOrder {
		if err := store.Remove(ctx, item.ProductID); err != nil && !errors.Is(err, domain.ErrItemNotFound) {
			return nil, pkgerrors.Wrapf(err, "remove %s", item.ProductID)
		}
		return append(out, issue(domain.IssueRemoved, item.ProductID, "no longer in stock and was removed")), nil
	}

	switch {
	case !item.PreOrder && item.Quantity > item.Stock:
		if err := store.SetQuantity(ctx, item.ProductID, item.Stock); err != nil && !errors.Is(err, domain.ErrItemNotFound) {
			return nil, pkgerrors.Wrapf(err, "clamp %s", item.ProductID)
		}
		out = append(out, issue(domain.IssueQuantityClamped, item.ProductID,
			fmt.Sprintf("quantity reduced from %d to %d", item.Quantity, item.Stock)))
	case clamped:
		out = append(out, issue(domain.IssueQuantityClamped, item.ProductID,
			fmt.Sprintf("quantity reduced from %d to %d", previous, item.Quantity)))
	}

	if item.UnitPrice(currency) == 0 {
		out = append(out, issue(domain.IssuePriceInvalid, item.ProductID,
			fmt.Sprintf("no valid %s price", currency)))
	}
	return out, nil
}

func issue(kind domain.IssueKind, productID, msg string) domain.CheckoutIssue {
	return domain.CheckoutIssue{Kind: kind, ProductID: productID, Message: msg}
}
