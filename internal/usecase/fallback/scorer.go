// Package fallback scores catalog entries by keyword overlap. It is
// invoked only when vector search plus relaxation produced nothing for a
// text-driven query.
package fallback

import (
	"sort"
	"strings"
	"unicode"

	"github.com/brightbasket/reko/internal/domain/catalog"
	"github.com/brightbasket/reko/internal/domain/constraint"
	"github.com/brightbasket/reko/internal/domain/rank"
)

// Scoring weights.
const (
	brandWeight  = 5.0
	tagWeight    = 2.0
	textWeight   = 1.0
	budgetWeight = 1.5
	priceEpsilon = 1e-6
)

// tokenize splits text into lowercase alphanumeric tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Score ranks catalog entries by deterministic keyword overlap with the
// query, within the given constraints. The candidate pool is the
// constraint-pre-filtered catalog, or the full catalog when pre-filtering
// leaves nothing. Items scoring zero or below are excluded. Returns scored
// entries, best first, ties broken by original catalog order.
func Score(snap *catalog.Snapshot, queryText string, spec *constraint.Spec, topK int) []rank.Candidate {
	if snap.Len() == 0 || topK <= 0 {
		return nil
	}

	pool := prefilter(snap, spec)
	if len(pool) == 0 {
		pool = make([]int, snap.Len())
		for i := range pool {
			pool[i] = i
		}
	}

	text := strings.ToLower(queryText)
	tokens := make(map[string]bool)
	for _, t := range tokenize(queryText) {
		tokens[t] = true
	}

	var hits []rank.Candidate

	for _, i := range pool {
		p := snap.Product(i)

		// Hard rejects: price bounds and category are never crossed.
		if !spec.InPriceRange(p.Price()) {
			continue
		}
		if spec.Category() != "" && !spec.MatchesCategory(p) {
			continue
		}

		var s float64
		brand := strings.ToLower(p.Brand())
		if brand != "" && strings.Contains(text, brand) {
			s += brandWeight
		}

		title := strings.ToLower(p.Title())
		desc := strings.ToLower(p.Description())
		tags := strings.ToLower(p.Tags())
		for tok := range tokens {
			if strings.Contains(tags, tok) {
				s += tagWeight
			}
			if strings.Contains(title, tok) || strings.Contains(desc, tok) {
				s += textWeight
			}
		}

		if max, ok := spec.PriceMax(); ok {
			den := max
			if den < priceEpsilon {
				den = priceEpsilon
			}
			s += budgetWeight * (p.Price() / den)
		}

		if s > 0 {
			hits = append(hits, rank.NewCandidate(i, s))
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score() > hits[b].Score()
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// prefilter returns catalog positions satisfying every set constraint
// field, in catalog order. Empty when the spec is unset or nothing matches.
func prefilter(snap *catalog.Snapshot, spec *constraint.Spec) []int {
	if spec.Empty() {
		return nil
	}
	var out []int
	for i := 0; i < snap.Len(); i++ {
		if spec.Matches(snap.Product(i)) {
			out = append(out, i)
		}
	}
	return out
}
