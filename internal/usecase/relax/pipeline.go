// Package relax turns a ranked candidate pool plus a constraint spec into
// the final result set via an ordered, multi-stage relaxation policy.
package relax

import (
	"strings"
	"unicode"

	"github.com/brightbasket/reko/internal/domain/catalog"
	"github.com/brightbasket/reko/internal/domain/constraint"
	"github.com/brightbasket/reko/internal/domain/rank"
)

// DefaultMinUnique is the minimum number of unique results the pipeline
// guarantees when the candidate pool can support it.
const DefaultMinUnique = 2

// dedupKey identifies near-identical listings: two entries with the same
// normalized title and brand count as one result even under different ids.
type dedupKey struct {
	title string
	brand string
}

// normalize lowercases, strips everything that is not alphanumeric or
// whitespace, and trims.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func keyOf(p *catalog.Product) dedupKey {
	return dedupKey{title: normalize(p.Title()), brand: normalize(p.Brand())}
}

// stage is one step of the relaxation policy: a gate deciding whether it
// runs for this constraint spec, an admission predicate, and the
// diagnostics flag it raises when it contributes items.
type stage struct {
	enabled func(spec *constraint.Spec) bool
	admit   func(spec *constraint.Spec, p *catalog.Product) bool
	mark    func(d *rank.Diagnostics)
}

// The policy, in order. Category is the one dimension never relaxed
// across: the unconstrained stage is gated on no category being set, so a
// category-specific request never leaks other categories.
var stages = []stage{
	{ // strict: every set field must hold
		enabled: func(*constraint.Spec) bool { return true },
		admit:   func(s *constraint.Spec, p *catalog.Product) bool { return s.Matches(p) },
		mark:    func(*rank.Diagnostics) {},
	},
	{ // category-relaxed: keep category, price, brand; ignore tags
		enabled: func(s *constraint.Spec) bool { return s.Category() != "" },
		admit: func(s *constraint.Spec, p *catalog.Product) bool {
			return s.MatchesCategory(p) && s.PriceBrandOK(p)
		},
		mark: func(d *rank.Diagnostics) { d.CategoryRelaxed = true },
	},
	{ // unconstrained-relaxed: keep price and brand only
		enabled: func(s *constraint.Spec) bool { return s.Category() == "" },
		admit: func(s *constraint.Spec, p *catalog.Product) bool {
			return s.PriceBrandOK(p)
		},
		mark: func(d *rank.Diagnostics) { d.AnyRelaxed = true },
	},
}

// Run applies the staged relaxation policy to the candidate pool. The pool
// is the full boosted pre-truncation candidate list, in ranked order. Run
// is a total function: it never fails, it only returns fewer (possibly
// zero) items.
//
// The minimum-unique override deliberately discards all constraint
// enforcement, including brand and price, when the staged result is too
// small — availability over correctness, surfaced via
// Diagnostics.MinUniqueOverride so callers can flag it.
func Run(
	snap *catalog.Snapshot, pool []rank.Candidate,
	spec *constraint.Spec, topK, minUnique int,
) ([]int, rank.Diagnostics) {
	var diag rank.Diagnostics
	if minUnique <= 0 {
		minUnique = DefaultMinUnique
	}

	chosen := make([]int, 0, topK)
	inChosen := make(map[int]bool, topK)
	seen := make(map[dedupKey]bool, topK)

	for si, st := range stages {
		if len(chosen) >= topK {
			break
		}
		if !st.enabled(spec) {
			continue
		}

		before := len(chosen)
		for _, c := range pool {
			if len(chosen) >= topK {
				break
			}
			if inChosen[c.Index()] {
				continue
			}
			p := snap.Product(c.Index())
			if !st.admit(spec, p) {
				continue
			}
			k := keyOf(p)
			if seen[k] {
				continue
			}
			seen[k] = true
			inChosen[c.Index()] = true
			chosen = append(chosen, c.Index())
		}

		if si == 0 {
			diag.FilledRelaxed = len(chosen) < topK
		} else if len(chosen) > before {
			st.mark(&diag)
		}
	}

	if len(chosen) < minUnique && distinctKeys(snap, pool) >= minUnique {
		chosen = rebuildUnfiltered(snap, pool, max(minUnique, topK))
		diag.MinUniqueOverride = true
	}

	return chosen, diag
}

// distinctKeys counts distinct dedup keys in the pool.
func distinctKeys(snap *catalog.Snapshot, pool []rank.Candidate) int {
	keys := make(map[dedupKey]bool, len(pool))
	for _, c := range pool {
		keys[keyOf(snap.Product(c.Index()))] = true
	}
	return len(keys)
}

// rebuildUnfiltered rebuilds the result from the raw pool using only the
// dedup rule, ignoring every constraint.
func rebuildUnfiltered(snap *catalog.Snapshot, pool []rank.Candidate, limit int) []int {
	chosen := make([]int, 0, limit)
	seen := make(map[dedupKey]bool, limit)
	for _, c := range pool {
		if len(chosen) >= limit {
			break
		}
		k := keyOf(snap.Product(c.Index()))
		if seen[k] {
			continue
		}
		seen[k] = true
		chosen = append(chosen, c.Index())
	}
	return chosen
}
