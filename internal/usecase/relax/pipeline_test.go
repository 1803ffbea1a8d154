package relax

import (
	"testing"

	"github.com/brightbasket/reko/internal/domain/catalog"
	"github.com/brightbasket/reko/internal/domain/constraint"
	"github.com/brightbasket/reko/internal/domain/rank"
)

func f64(v float64) *float64 { return &v }

func poolOf(indices ...int) []rank.Candidate {
	out := make([]rank.Candidate, len(indices))
	for i, idx := range indices {
		out[i] = rank.NewCandidate(idx, 1-float64(i)*0.01)
	}
	return out
}

func snapOf(t *testing.T, products []catalog.Product) *catalog.Snapshot {
	t.Helper()
	vectors := make([][]float32, len(products))
	for i := range vectors {
		vectors[i] = []float32{1, 0}
	}
	snap, err := catalog.NewSnapshot(products, vectors)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snap
}

// Catalog from the reference scenario: two t-shirts, one hoodie.
func scenarioSnap(t *testing.T) *catalog.Snapshot {
	t.Helper()
	return snapOf(t, []catalog.Product{
		catalog.New("a", "Tee A", "", "t-shirt", "Nike", 25, "USD", "", "", ""),
		catalog.New("b", "Tee B", "", "t-shirt", "Adidas", 30, "USD", "", "", ""),
		catalog.New("c", "Hoodie C", "", "hoodie", "Nike", 45, "USD", "", "", ""),
	})
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Nike Air-Max 90!  ": "nike airmax 90",
		"T-Shirt (Red)":        "tshirt red",
		"":                     "",
	}
	for in, want := range cases {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRun_StrictStageScenario(t *testing.T) {
	snap := scenarioSnap(t)
	spec := constraint.New("Nike", "t-shirt", "", nil, nil)

	// Regardless of raw similarity ordering, strict output is exactly [a].
	// minUnique is 1 here so the availability override stays out of the way.
	for _, order := range [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}} {
		chosen, diag := Run(snap, poolOf(order...), &spec, 1, 1)
		if len(chosen) != 1 || snap.Product(chosen[0]).ID() != "a" {
			t.Errorf("pool %v: chosen = %v, want exactly [a]", order, chosen)
		}
		if diag.MinUniqueOverride {
			t.Errorf("pool %v: unexpected min-unique override", order)
		}
	}
}

func TestRun_CategoryNeverRelaxedAcross(t *testing.T) {
	snap := scenarioSnap(t)
	spec := constraint.New("", "t-shirt", "", nil, nil)

	chosen, diag := Run(snap, poolOf(0, 1, 2), &spec, 5, 0)
	for _, idx := range chosen {
		if snap.Product(idx).Category() != "t-shirt" {
			t.Errorf("category leak: got %q", snap.Product(idx).Category())
		}
	}
	if diag.AnyRelaxed {
		t.Error("unconstrained stage ran despite a category constraint")
	}
	if !diag.FilledRelaxed {
		t.Error("FilledRelaxed not set though strict stage left topK short")
	}
}

func TestRun_CategoryRelaxDropsTagsOnly(t *testing.T) {
	snap := snapOf(t, []catalog.Product{
		catalog.New("a", "Tee A", "", "t-shirt", "Nike", 25, "USD", "", "", "organic"),
		catalog.New("b", "Tee B", "", "t-shirt", "Nike", 28, "USD", "", "", "plain"),
		catalog.New("c", "Tee C", "", "t-shirt", "Adidas", 22, "USD", "", "", "plain"),
	})
	spec := constraint.New("Nike", "t-shirt", "organic", nil, nil)

	chosen, diag := Run(snap, poolOf(0, 1, 2), &spec, 3, 0)
	// Strict admits only a; the category stage adds b (tag ignored) but
	// never c (brand still enforced).
	if len(chosen) != 2 {
		t.Fatalf("chosen = %v, want [a b]", chosen)
	}
	if snap.Product(chosen[0]).ID() != "a" || snap.Product(chosen[1]).ID() != "b" {
		t.Errorf("chosen ids = [%s %s], want [a b]",
			snap.Product(chosen[0]).ID(), snap.Product(chosen[1]).ID())
	}
	if !diag.CategoryRelaxed {
		t.Error("CategoryRelaxed flag not set")
	}
}

func TestRun_Monotonicity(t *testing.T) {
	snap := snapOf(t, []catalog.Product{
		catalog.New("a", "Tee A", "", "t-shirt", "Nike", 25, "USD", "", "", "organic"),
		catalog.New("b", "Tee B", "", "t-shirt", "Nike", 28, "USD", "", "", "plain"),
		catalog.New("c", "Tee C", "", "t-shirt", "Nike", 22, "USD", "", "", "plain"),
	})
	spec := constraint.New("Nike", "t-shirt", "organic", nil, nil)

	strictOnly, _ := Run(snap, poolOf(0, 1, 2), &spec, 1, 1)
	relaxed, _ := Run(snap, poolOf(0, 1, 2), &spec, 3, 1)

	// Later stages only append: the strict result is a prefix of the
	// relaxed result.
	if len(relaxed) < len(strictOnly) {
		t.Fatalf("relaxed %v shorter than strict %v", relaxed, strictOnly)
	}
	for i := range strictOnly {
		if relaxed[i] != strictOnly[i] {
			t.Errorf("relaxed[%d] = %d, want strict prefix %d", i, relaxed[i], strictOnly[i])
		}
	}
}

func TestRun_BrandStrictness(t *testing.T) {
	snap := scenarioSnap(t)
	spec := constraint.New("Nike", "", "", nil, nil)

	chosen, diag := Run(snap, poolOf(1, 0, 2), &spec, 5, 0)
	if diag.MinUniqueOverride {
		t.Fatal("unexpected override")
	}
	for _, idx := range chosen {
		if snap.Product(idx).Brand() != "Nike" {
			t.Errorf("brand leak: got %q", snap.Product(idx).Brand())
		}
	}
	if len(chosen) != 2 {
		t.Errorf("chosen = %v, want both Nike items", chosen)
	}
}

func TestRun_Deduplication(t *testing.T) {
	snap := snapOf(t, []catalog.Product{
		catalog.New("sku1", "Logo Tee", "", "t-shirt", "Nike", 25, "USD", "", "", ""),
		catalog.New("sku2", "logo tee!", "", "t-shirt", "Nike", 26, "USD", "", "", ""),
		catalog.New("sku3", "Other Tee", "", "t-shirt", "Nike", 27, "USD", "", "", ""),
	})
	spec := constraint.New("", "", "", nil, nil)

	chosen, _ := Run(snap, poolOf(0, 1, 2), &spec, 5, 0)
	if len(chosen) != 2 {
		t.Fatalf("chosen = %v, want 2 (sku2 deduped against sku1)", chosen)
	}
	if snap.Product(chosen[0]).ID() != "sku1" || snap.Product(chosen[1]).ID() != "sku3" {
		t.Errorf("chosen ids = [%s %s], want [sku1 sku3]",
			snap.Product(chosen[0]).ID(), snap.Product(chosen[1]).ID())
	}
}

func TestRun_MinUniqueOverride(t *testing.T) {
	snap := scenarioSnap(t)
	// Impossible constraint: nothing satisfies it.
	spec := constraint.New("Puma", "", "", nil, nil)

	chosen, diag := Run(snap, poolOf(0, 1, 2), &spec, 2, 2)
	if !diag.MinUniqueOverride {
		t.Fatal("MinUniqueOverride flag not set")
	}
	if len(chosen) != 2 {
		t.Errorf("chosen = %v, want 2 items despite constraint", chosen)
	}
	// Pool order is preserved in the rebuilt result.
	if chosen[0] != 0 || chosen[1] != 1 {
		t.Errorf("chosen = %v, want [0 1]", chosen)
	}
}

func TestRun_OverrideTriggersOnShortStagedResult(t *testing.T) {
	snap := scenarioSnap(t)
	spec := constraint.New("Nike", "t-shirt", "", nil, nil)

	chosen, diag := Run(snap, poolOf(0, 1, 2), &spec, 2, 0)
	// Stages produce only [a]; with the default minimum of 2 the result is
	// rebuilt from the raw pool with constraints ignored, and flagged.
	if !diag.MinUniqueOverride {
		t.Fatal("MinUniqueOverride flag not set")
	}
	if len(chosen) != 2 || chosen[0] != 0 || chosen[1] != 1 {
		t.Errorf("chosen = %v, want rebuilt [0 1]", chosen)
	}
}

func TestRun_NoOverrideWhenPoolTooSmall(t *testing.T) {
	snap := scenarioSnap(t)
	spec := constraint.New("Puma", "", "", nil, nil)

	chosen, diag := Run(snap, poolOf(0), &spec, 2, 2)
	if diag.MinUniqueOverride {
		t.Error("override fired though the pool has fewer distinct keys than minUnique")
	}
	if len(chosen) != 0 {
		t.Errorf("chosen = %v, want empty", chosen)
	}
}

func TestRun_PriceBoundsAlwaysEnforcedOutsideOverride(t *testing.T) {
	snap := scenarioSnap(t)
	spec := constraint.New("", "", "", f64(26), f64(50))

	chosen, diag := Run(snap, poolOf(0, 1, 2), &spec, 5, 0)
	if diag.MinUniqueOverride {
		t.Fatal("unexpected override")
	}
	for _, idx := range chosen {
		if p := snap.Product(idx).Price(); p < 26 || p > 50 {
			t.Errorf("price %v outside bounds", p)
		}
	}
	if len(chosen) != 2 {
		t.Errorf("chosen = %v, want [b c]", chosen)
	}
}

func TestRun_EmptyPool(t *testing.T) {
	snap := scenarioSnap(t)
	spec := constraint.New("", "", "", nil, nil)
	chosen, diag := Run(snap, nil, &spec, 5, 0)
	if len(chosen) != 0 {
		t.Errorf("chosen = %v, want empty", chosen)
	}
	if diag.MinUniqueOverride || diag.CategoryRelaxed || diag.AnyRelaxed {
		t.Errorf("unexpected diagnostics %+v for empty pool", diag)
	}
}
