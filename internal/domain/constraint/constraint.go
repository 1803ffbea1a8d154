// Package constraint models the hard-filter side of a recommendation query.
package constraint

import (
	"strings"

	"github.com/brightbasket/reko/internal/domain/catalog"
)

// Spec is a set of optional hard constraints. An unset field means
// "unconstrained" — never a default value. When both price bounds are set,
// min <= max is the caller's responsibility.
type Spec struct {
	brand    string
	category string
	tags     string
	priceMin *float64
	priceMax *float64
}

// New creates a constraint spec. Empty strings and nil pointers mean unset.
func New(brand, category, tags string, priceMin, priceMax *float64) Spec {
	return Spec{brand: brand, category: category, tags: tags, priceMin: priceMin, priceMax: priceMax}
}

// Brand returns the brand constraint ("" when unset).
func (s *Spec) Brand() string { return s.brand }

// Category returns the category constraint ("" when unset).
func (s *Spec) Category() string { return s.category }

// Tags returns the tag-substring constraint ("" when unset).
func (s *Spec) Tags() string { return s.tags }

// PriceMin returns the lower price bound.
func (s *Spec) PriceMin() (float64, bool) {
	if s.priceMin == nil {
		return 0, false
	}
	return *s.priceMin, true
}

// PriceMax returns the upper price bound.
func (s *Spec) PriceMax() (float64, bool) {
	if s.priceMax == nil {
		return 0, false
	}
	return *s.priceMax, true
}

// Empty reports whether no field is set.
func (s *Spec) Empty() bool {
	return s.brand == "" && s.category == "" && s.tags == "" &&
		s.priceMin == nil && s.priceMax == nil
}

// WithCategory returns a copy with the category constraint set.
// Used when a category is inferred from an image query.
func (s Spec) WithCategory(category string) Spec {
	s.category = category
	return s
}

// MatchesBrand reports whether p satisfies the brand constraint
// (exact, case-insensitive). Unset always matches.
func (s *Spec) MatchesBrand(p *catalog.Product) bool {
	return s.brand == "" || strings.EqualFold(p.Brand(), s.brand)
}

// MatchesCategory reports whether p satisfies the category constraint
// (substring, case-insensitive). Unset always matches.
func (s *Spec) MatchesCategory(p *catalog.Product) bool {
	return s.category == "" ||
		strings.Contains(strings.ToLower(p.Category()), strings.ToLower(s.category))
}

// MatchesTags reports whether p satisfies the tag constraint
// (substring, case-insensitive). Unset always matches.
func (s *Spec) MatchesTags(p *catalog.Product) bool {
	return s.tags == "" ||
		strings.Contains(strings.ToLower(p.Tags()), strings.ToLower(s.tags))
}

// InPriceRange reports whether price satisfies the set bounds (inclusive).
func (s *Spec) InPriceRange(price float64) bool {
	if s.priceMin != nil && price < *s.priceMin {
		return false
	}
	if s.priceMax != nil && price > *s.priceMax {
		return false
	}
	return true
}

// Matches reports whether p satisfies every set field.
func (s *Spec) Matches(p *catalog.Product) bool {
	return s.MatchesBrand(p) && s.MatchesCategory(p) && s.MatchesTags(p) &&
		s.InPriceRange(p.Price())
}

// PriceBrandOK reports whether p satisfies the price bounds and the brand
// constraint. Price and brand are the dimensions relaxation never crosses.
func (s *Spec) PriceBrandOK(p *catalog.Product) bool {
	return s.MatchesBrand(p) && s.InPriceRange(p.Price())
}
