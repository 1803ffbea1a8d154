package index

import (
	"fmt"
	"sort"

	"github.com/brightbasket/reko/internal/domain"
	"github.com/brightbasket/reko/internal/domain/catalog"
	"github.com/brightbasket/reko/internal/domain/rank"
)

// Search computes the inner product of query against every stored vector
// and returns the fetchK highest-scoring entries, sorted descending by
// score with ties broken by ascending entry index. The query must be
// unit-norm for scores to read as cosine similarity; callers are
// responsible, no renormalization happens here. An empty snapshot yields an
// empty result, not an error.
func Search(snap *catalog.Snapshot, query []float32, fetchK int) ([]rank.Candidate, error) {
	if snap.Len() == 0 {
		return nil, nil
	}
	if len(query) != snap.Dims() {
		return nil, fmt.Errorf("query dims %d, index dims %d: %w",
			len(query), snap.Dims(), domain.ErrVectorDimMismatch)
	}
	if fetchK <= 0 {
		return nil, nil
	}

	scores := make([]float64, snap.Len())
	order := make([]int, snap.Len())
	for i := 0; i < snap.Len(); i++ {
		scores[i] = domain.Dot(query, snap.Vector(i))
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return order[a] < order[b]
	})

	if fetchK < len(order) {
		order = order[:fetchK]
	}

	out := make([]rank.Candidate, len(order))
	for i, idx := range order {
		out[i] = rank.NewCandidate(idx, scores[idx])
	}
	return out, nil
}
