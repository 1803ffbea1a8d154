// Package catalog loads the product catalog from CSV. Parsing is
// deliberately forgiving: operator-supplied catalogs arrive with ragged
// rows, loose quoting, and junk prices, and a bad row must not keep the
// service from starting.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/brightbasket/reko/internal/domain/catalog"
)

const malformedPreview = 20

// Loader reads product catalogs from CSV files.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a CSV catalog loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load parses the CSV file at path into products. The header must contain
// an id column; every other column is optional and defaults to empty.
// Rows whose field count disagrees with the header are padded or clipped
// and reported, never fatal. Unparseable prices coerce to zero.
func (l *Loader) Load(path string) ([]catalog.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	products, err := l.parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return products, nil
}

func (l *Loader) parse(r io.Reader) ([]catalog.Product, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["id"]; !ok {
		return nil, fmt.Errorf("header has no id column")
	}

	var (
		products  []catalog.Product
		malformed []int
		skipped   int
	)
	for lineno := 2; ; lineno++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep what the reader salvaged and move on.
			skipped++
			continue
		}
		if len(row) != len(header) {
			malformed = append(malformed, lineno)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		productURL := field("product_url")
		if productURL == "" {
			productURL = field("buy_link")
		}

		products = append(products, catalog.New(
			field("id"),
			field("title"),
			field("description"),
			field("category"),
			field("brand"),
			parsePrice(field("price")),
			field("currency"),
			field("image_url"),
			productURL,
			field("tags"),
		))
	}

	if skipped > 0 || len(malformed) > 0 {
		preview := malformed
		if len(preview) > malformedPreview {
			preview = preview[:malformedPreview]
		}
		l.logger.Warn("Catalog has malformed rows",
			zap.Int("loaded", len(products)),
			zap.Int("skipped", skipped),
			zap.Ints("bad_lines", preview),
			zap.Int("bad_lines_total", len(malformed)),
		)
	}
	return products, nil
}

// parsePrice coerces a price cell to a non-negative float. Currency
// symbols and thousands separators are stripped first.
func parsePrice(s string) float64 {
	if s == "" {
		return 0
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
