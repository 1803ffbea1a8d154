// Package rerank reorders search candidates with Maximal Marginal
// Relevance so the result set is not dominated by near-duplicate items.
package rerank

import (
	"math"

	"github.com/brightbasket/reko/internal/domain"
	"github.com/brightbasket/reko/internal/domain/catalog"
	"github.com/brightbasket/reko/internal/domain/rank"
)

// DefaultDiversity balances relevance against novelty. Higher favors
// relevance; 0 degenerates to pure anti-redundancy, 1 to pure relevance.
const DefaultDiversity = 0.3

// Select picks up to topK candidates, balancing similarity to the query
// against redundancy with already-selected items. Candidates carry their
// raw query similarity; pairwise similarity comes from the snapshot's
// unit-norm vectors. The returned entry indices are in selection order,
// which is the final relevance-then-diversity order.
func Select(snap *catalog.Snapshot, cands []rank.Candidate, topK int, diversity float64) []int {
	n := len(cands)
	if n == 0 || topK <= 0 {
		return nil
	}

	simToQuery := make([]float64, n)
	for i, c := range cands {
		simToQuery[i] = c.Score()
	}

	// Pairwise similarity among candidates. n is bounded by the fetch
	// window, so the quadratic table stays small.
	pairwise := make([][]float64, n)
	for i := 0; i < n; i++ {
		pairwise[i] = make([]float64, n)
		vi := snap.Vector(cands[i].Index())
		for j := 0; j < i; j++ {
			s := domain.Dot(vi, snap.Vector(cands[j].Index()))
			pairwise[i][j] = s
			pairwise[j][i] = s
		}
		pairwise[i][i] = 1
	}

	want := min(topK, n)
	selected := make([]int, 0, want)
	chosen := make([]bool, n)

	for len(selected) < want {
		best := -1
		bestScore := math.Inf(-1)

		for j := 0; j < n; j++ {
			if chosen[j] {
				continue
			}
			var score float64
			if len(selected) == 0 {
				score = simToQuery[j]
			} else {
				penalty := math.Inf(-1)
				for _, s := range selected {
					if pairwise[j][s] > penalty {
						penalty = pairwise[j][s]
					}
				}
				score = diversity*simToQuery[j] - (1-diversity)*penalty
			}
			// Strict greater keeps the argmax stable: ties resolve to the
			// lowest candidate-list position.
			if score > bestScore {
				bestScore = score
				best = j
			}
		}

		chosen[best] = true
		selected = append(selected, best)
	}

	out := make([]int, len(selected))
	for i, j := range selected {
		out[i] = cands[j].Index()
	}
	return out
}
