package httpserver

import (
	"variantcart/internal/domain"
	"variantcart/internal/pricing"
)

type productResponse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Brand    string            `json:"brand,omitempty"`
	Category string            `json:"category,omitempty"`
	Price    priceValue        `json:"price"`
	Prices   []priceValue      `json:"prices"`
	Stock    int               `json:"stock"`
	Variants []variantResponse `json:"variants"`
}

type variantResponse struct {
	ID             string        `json:"id"`
	Color          *domain.Color `json:"color,omitempty"`
	Storage        string        `json:"storage,omitempty"`
	Condition      string        `json:"condition"`
	ConditionLabel string        `json:"conditionLabel"`
	Stock          int           `json:"stock"`
	Active         bool          `json:"active"`
	Price          priceValue    `json:"price"`
}

type priceValue struct {
	CurrencyCode domain.Currency `json:"currencyCode"`
	Amount       float64         `json:"amount"`
}

type errorResponse struct {
	StatusCode int           `json:"statusCode"`
	Message    string        `json:"message"`
	Errors     []errorDetail `json:"errors"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toProductResponse(p domain.Product, prices pricing.Resolver, c domain.Currency) productResponse {
	resp := productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Brand:    p.Brand,
		Category: p.Category,
		Price:    priceValue{CurrencyCode: c, Amount: prices.Resolve(p, nil, c)},
		Stock:    p.Stock,
		Variants: make([]variantResponse, 0, len(p.Variants)),
	}
	for _, cur := range domain.Currencies {
		resp.Prices = append(resp.Prices, priceValue{CurrencyCode: cur, Amount: prices.Resolve(p, nil, cur)})
	}
	for i := range p.Variants {
		v := p.Variants[i]
		resp.Variants = append(resp.Variants, variantResponse{
			ID:             v.ID,
			Color:          v.Color,
			Storage:        v.Storage,
			Condition:      string(v.Condition),
			ConditionLabel: v.Condition.Label(),
			Stock:          v.Stock,
			Active:         v.Active,
			Price:          priceValue{CurrencyCode: c, Amount: prices.Resolve(p, &v, c)},
		})
	}
	return resp
}

func newError(status int, code, msg string) errorResponse {
	return errorResponse{
		StatusCode: status,
		Message:    msg,
		Errors:     []errorDetail{{Code: code, Message: msg}},
	}
}
