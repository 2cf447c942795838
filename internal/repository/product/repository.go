package product

import (
	"context"

	"variantcart/internal/catalog"
	"variantcart/internal/domain"
)

// Repository is the catalog accessor. Reads return the canonical shape
// produced by catalog.NormalizeProduct.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Upsert(ctx context.Context, raw catalog.RawProduct) error
}
