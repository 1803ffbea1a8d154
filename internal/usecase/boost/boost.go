// Package boost applies small deterministic score adjustments for
// constraint matches after diversity selection.
package boost

import (
	"sort"

	"github.com/brightbasket/reko/internal/domain"
	"github.com/brightbasket/reko/internal/domain/catalog"
	"github.com/brightbasket/reko/internal/domain/constraint"
	"github.com/brightbasket/reko/internal/domain/rank"
)

// Bonus weights for structured matches.
const (
	brandBonus    = 0.05
	categoryBonus = 0.03
	tagBonus      = 0.02
	budgetBonus   = 0.03
	priceEpsilon  = 1e-6
)

// Apply recomputes each picked entry's exact similarity to the query as the
// base score, adds constraint-match bonuses, and re-sorts descending by the
// adjusted score. The sort is stable: ties keep the incoming
// (relevance-then-diversity) order.
func Apply(snap *catalog.Snapshot, query []float32, picked []int, spec *constraint.Spec) []rank.Candidate {
	out := make([]rank.Candidate, 0, len(picked))
	for _, idx := range picked {
		score := domain.Dot(query, snap.Vector(idx))
		p := snap.Product(idx)

		if spec != nil {
			if spec.Brand() != "" && spec.MatchesBrand(p) {
				score += brandBonus
			}
			if spec.Category() != "" && spec.MatchesCategory(p) {
				score += categoryBonus
			}
			if spec.Tags() != "" && spec.MatchesTags(p) {
				score += tagBonus
			}
			// Soft budget preference: within budget, items near the ceiling
			// outrank cheaper ones.
			if max, ok := spec.PriceMax(); ok && p.Price() <= max {
				den := max
				if den < priceEpsilon {
					den = priceEpsilon
				}
				score += budgetBonus * (p.Price() / den)
			}
		}

		out = append(out, rank.NewCandidate(idx, score))
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score() > out[b].Score()
	})
	return out
}
