package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"variantcart/internal/catalog"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product catalog.RawProduct) error
}

// CSVImporter reads catalog CSV exports, one row per variant, and upserts
// products with their variants.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	logger      logrus.FieldLogger
	dryRun      bool
}

func NewCSVImporter(r io.Reader, repo ProductWriter, logger logrus.FieldLogger, dryRun bool) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		logger:      logger,
		dryRun:      dryRun,
	}
}

// product columns
var productColumns = map[string]string{
	"price_mwk": "price_mwk",
	"price_gbp": "price_gbp",
	"stock":     "stock",
}

// variant columns, mapped onto the field names the normalizer reads
var variantColumns = map[string]string{
	"color":             "color",
	"color_hex":         "color_hex",
	"storage":           "storage",
	"condition":         "condition",
	"variant_stock":     "stock",
	"variant_price_mwk": "price_mwk",
	"variant_price_gbp": "price_gbp",
}

// Run parses CSV rows, groups them by product id in first-seen order and
// upserts every product. A row without variant_id only sets product fields.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["product_id"]; !ok {
		return 0, errors.New("read headers: product_id column required")
	}

	var (
		order    []string
		products = map[string]*catalog.RawProduct{}
		line     = 1
	)
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read row: %w", err)
		}
		line++

		id := pick(record, index, "product_id")
		if id == "" {
			i.logger.WithField("line", line).Warn("importer: skipping row without product_id")
			continue
		}
		p, ok := products[id]
		if !ok {
			p = &catalog.RawProduct{ID: id, Fields: map[string]interface{}{}}
			products[id] = p
			order = append(order, id)
		}
		mergeProduct(p, record, index)

		variantID := pick(record, index, "variant_id")
		if variantID == "" {
			continue
		}
		v := catalog.RawVariant{ID: variantID, ProductID: id, Fields: map[string]interface{}{}}
		for col, field := range variantColumns {
			if val := pick(record, index, col); val != "" {
				v.Fields[field] = val
			}
		}
		if raw := pick(record, index, "active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				return 0, fmt.Errorf("line %d: invalid active flag %q", line, raw)
			}
			v.Active = &active
		}
		p.Variants = append(p.Variants, v)
	}

	imported := 0
	for _, id := range order {
		p := products[id]
		if p.Name == "" {
			return imported, fmt.Errorf("invalid product row (missing name) for id %q", id)
		}
		if i.dryRun {
			i.logger.WithFields(logrus.Fields{"product_id": id, "variants": len(p.Variants)}).Info("importer: dry run")
			imported++
			continue
		}
		if err := i.productRepo.Upsert(ctx, *p); err != nil {
			return imported, fmt.Errorf("upsert product %q: %w", id, err)
		}
		imported++
	}
	return imported, nil
}

// mergeProduct fills product fields; the first non-empty value wins.
func mergeProduct(p *catalog.RawProduct, record []string, index map[string]int) {
	if p.Name == "" {
		p.Name = pick(record, index, "name")
	}
	if p.Brand == "" {
		p.Brand = pick(record, index, "brand")
	}
	if p.Category == "" {
		p.Category = pick(record, index, "category")
	}
	for col, field := range productColumns {
		if _, set := p.Fields[field]; set {
			continue
		}
		if val := pick(record, index, col); val != "" {
			p.Fields[field] = val
		}
	}
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
