package product

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"variantcart/internal/catalog"
	"variantcart/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger
}

func NewPostgres(pool *pgxpool.Pool, logger logrus.FieldLogger) Repository {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT id, name, brand, category, price_fields, stock_fields
FROM products
WHERE id = $1
`
	raw, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WithField("id", id).Debug("product repo: get not found")
			return nil, domain.ErrNotFound
		}
		r.logger.WithField("id", id).WithError(err).Error("product repo: get failed")
		return nil, err
	}
	variants, err := r.variants(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	raw.Variants = variants[id]
	p := catalog.NormalizeProduct(raw)
	r.logger.WithFields(logrus.Fields{"id": id, "variants": len(p.Variants)}).Debug("product repo: get")
	return &p, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	const q = `
SELECT id, name, brand, category, price_fields, stock_fields
FROM products
ORDER BY name ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.WithError(err).Error("product repo: list failed")
		return nil, err
	}
	defer rows.Close()

	var raws []catalog.RawProduct
	var ids []string
	for rows.Next() {
		raw, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
		ids = append(ids, raw.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	variants, err := r.variants(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(raws))
	for _, raw := range raws {
		raw.Variants = variants[raw.ID]
		out = append(out, catalog.NormalizeProduct(raw))
	}
	r.logger.WithField("count", len(out)).Debug("product repo: list")
	return out, nil
}

// Upsert replaces the product and all of its variants, keeping the given variant order.
func (r *postgresRepo) Upsert(ctx context.Context, raw catalog.RawProduct) error {
	if raw.ID == "" {
		return errors.New("product repo: id required")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	priceFields, stockFields := splitFields(raw.Fields)
	if _, err := tx.Exec(ctx, `
INSERT INTO products (id, name, brand, category, price_fields, stock_fields)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    brand = EXCLUDED.brand,
    category = EXCLUDED.category,
    price_fields = EXCLUDED.price_fields,
    stock_fields = EXCLUDED.stock_fields
`, raw.ID, raw.Name, raw.Brand, raw.Category, priceFields, stockFields); err != nil {
		return fmt.Errorf("upsert product %s: %w", raw.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM variants WHERE product_id = $1`, raw.ID); err != nil {
		return fmt.Errorf("clear variants of %s: %w", raw.ID, err)
	}
	for pos, v := range raw.Variants {
		active := true
		if v.Active != nil {
			active = *v.Active
		}
		attrs := v.Fields
		if attrs == nil {
			attrs = map[string]interface{}{}
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO variants (id, product_id, position, attributes, active)
VALUES ($1, $2, $3, $4, $5)
`, v.ID, raw.ID, pos, attrs, active); err != nil {
			return fmt.Errorf("insert variant %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.logger.WithFields(logrus.Fields{"id": raw.ID, "variants": len(raw.Variants)}).Info("product repo: upserted")
	return nil
}

func (r *postgresRepo) variants(ctx context.Context, productIDs []string) (map[string][]catalog.RawVariant, error) {
	out := make(map[string][]catalog.RawVariant, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	const q = `
SELECT id, product_id, attributes, active
FROM variants
WHERE product_id = ANY($1)
ORDER BY product_id, position ASC, created_at ASC
`
	rows, err := r.pool.Query(ctx, q, productIDs)
	if err != nil {
		r.logger.WithError(err).Error("product repo: variants failed")
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v catalog.RawVariant
		var active bool
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Fields, &active); err != nil {
			return nil, err
		}
		v.Active = &active
		out[v.ProductID] = append(out[v.ProductID], v)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (catalog.RawProduct, error) {
	var raw catalog.RawProduct
	var priceFields, stockFields map[string]interface{}
	if err := row.Scan(&raw.ID, &raw.Name, &raw.Brand, &raw.Category, &priceFields, &stockFields); err != nil {
		return catalog.RawProduct{}, err
	}
	raw.Fields = make(map[string]interface{}, len(priceFields)+len(stockFields))
	for k, v := range priceFields {
		raw.Fields[k] = v
	}
	for k, v := range stockFields {
		raw.Fields[k] = v
	}
	return raw, nil
}

// splitFields separates stock aliases from everything else so the two
// jsonb columns stay readable in the database.
func splitFields(fields map[string]interface{}) (map[string]interface{}, map[string]interface{}) {
	prices := map[string]interface{}{}
	stock := map[string]interface{}{}
	for k, v := range fields {
		if catalog.IsStockField(k) {
			stock[k] = v
			continue
		}
		prices[k] = v
	}
	return prices, stock
}
