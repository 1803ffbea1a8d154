// Package rank holds the transient per-query ranking types.
package rank

// Candidate is an (entry index, similarity score) pair produced by raw
// search and carried through re-ranking and boosting.
type Candidate struct {
	index int
	score float64
}

// NewCandidate creates a candidate.
func NewCandidate(index int, score float64) Candidate {
	return Candidate{index: index, score: score}
}

// Index returns the catalog position of the entry.
func (c *Candidate) Index() int { return c.index }

// Score returns the similarity (or adjusted) score.
func (c *Candidate) Score() float64 { return c.score }

// Dedupe drops invalid markers (index < 0, used by index structures to
// signal "no candidate") and duplicate entry indices, keeping the first,
// highest-ranked occurrence. Order is otherwise preserved.
func Dedupe(cands []Candidate) []Candidate {
	seen := make(map[int]struct{}, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.index < 0 {
			continue
		}
		if _, ok := seen[c.index]; ok {
			continue
		}
		seen[c.index] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Diagnostics records which relaxation stages and fallbacks contributed to
// a result. Callers surface it so constraint violations from the
// minimum-unique override are never hidden.
type Diagnostics struct {
	// FilledRelaxed is set when the strict stage alone could not fill topK.
	FilledRelaxed bool `json:"filled_relaxed"`
	// CategoryRelaxed is set when the category-relaxed stage added items.
	CategoryRelaxed bool `json:"filled_category_relax"`
	// AnyRelaxed is set when the unconstrained-relaxed stage added items.
	AnyRelaxed bool `json:"filled_any_relax"`
	// MinUniqueOverride is set when staged results were discarded and the
	// result was rebuilt ignoring all constraints.
	MinUniqueOverride bool `json:"min_unique_override"`
	// UsedFallback is set when the keyword fallback scorer produced the result.
	UsedFallback bool `json:"used_fallback"`
	// Pruned counts items dropped by the final constraint safety pass.
	Pruned int `json:"post_filter_pruned,omitempty"`
	// CategoryInferred holds a category derived from the query image when
	// the caller set none.
	CategoryInferred string `json:"category_inferred,omitempty"`
}
