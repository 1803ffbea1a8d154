package catalog

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/brightbasket/reko/internal/domain"
)

// Snapshot is an immutable catalog with position-aligned embeddings.
// vectors[i] belongs to products[i]; the two are equal-length by
// construction and never mutated after NewSnapshot returns.
type Snapshot struct {
	products []Product
	vectors  [][]float32
	byID     map[string]int
	dims     int
}

// NewSnapshot builds a snapshot, validating catalog/embedding alignment and
// dimensional consistency.
func NewSnapshot(products []Product, vectors [][]float32) (*Snapshot, error) {
	if len(products) != len(vectors) {
		return nil, fmt.Errorf("%d products vs %d vectors: %w",
			len(products), len(vectors), domain.ErrCatalogMismatch)
	}

	dims := 0
	byID := make(map[string]int, len(products))
	for i := range products {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("empty vector at position %d: %w", i, domain.ErrCatalogMismatch)
		}
		if dims == 0 {
			dims = len(vectors[i])
		} else if len(vectors[i]) != dims {
			return nil, fmt.Errorf("vector dims %d at position %d, want %d: %w",
				len(vectors[i]), i, dims, domain.ErrVectorDimMismatch)
		}
		byID[products[i].ID()] = i
	}

	return &Snapshot{products: products, vectors: vectors, byID: byID, dims: dims}, nil
}

// Len returns the number of catalog entries.
func (s *Snapshot) Len() int { return len(s.products) }

// Dims returns the embedding dimensionality (0 for an empty snapshot).
func (s *Snapshot) Dims() int { return s.dims }

// Product returns the entry at position i.
func (s *Snapshot) Product(i int) *Product { return &s.products[i] }

// Vector returns the embedding at position i.
func (s *Snapshot) Vector(i int) []float32 { return s.vectors[i] }

// IndexOf resolves a product id to its catalog position.
func (s *Snapshot) IndexOf(id string) (int, bool) {
	i, ok := s.byID[id]
	return i, ok
}

// IDs returns product ids in catalog order.
func (s *Snapshot) IDs() []string {
	ids := make([]string, len(s.products))
	for i := range s.products {
		ids[i] = s.products[i].ID()
	}
	return ids
}

// Brands returns the distinct brand names, sorted.
func (s *Snapshot) Brands() []string { return s.distinct((*Product).Brand) }

// Categories returns the distinct category names, sorted.
func (s *Snapshot) Categories() []string { return s.distinct((*Product).Category) }

func (s *Snapshot) distinct(field func(*Product) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range s.products {
		v := field(&s.products[i])
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// PriceRange returns the min and max catalog price (0, 0 when empty).
func (s *Snapshot) PriceRange() (float64, float64) {
	if len(s.products) == 0 {
		return 0, 0
	}
	lo, hi := s.products[0].Price(), s.products[0].Price()
	for i := 1; i < len(s.products); i++ {
		p := s.products[i].Price()
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return lo, hi
}

// Holder publishes the current snapshot atomically. A rebuild constructs a
// new snapshot off to the side and swaps the pointer; in-flight queries keep
// the snapshot they loaded and never observe a half-updated index.
type Holder struct {
	p atomic.Pointer[Snapshot]
}

// NewHolder creates a holder publishing the given snapshot.
func NewHolder(s *Snapshot) *Holder {
	h := &Holder{}
	h.p.Store(s)
	return h
}

// Current returns the published snapshot.
func (h *Holder) Current() *Snapshot { return h.p.Load() }

// Publish atomically replaces the published snapshot.
func (h *Holder) Publish(s *Snapshot) { h.p.Store(s) }
