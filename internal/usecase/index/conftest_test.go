package index

import (
	"context"

	"github.com/brightbasket/reko/internal/domain"
	"github.com/brightbasket/reko/internal/domain/catalog"
)

// mockEncoder produces deterministic unit vectors from text hashes so cache
// round-trip tests can compare rankings bit-for-bit.
type mockEncoder struct {
	dims  int
	calls int
	err   error
}

func (m *mockEncoder) EncodeText(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, m.dims)
		h := uint32(2166136261)
		for _, c := range t {
			h = (h ^ uint32(c)) * 16777619
		}
		for d := range v {
			h = h*1664525 + 1013904223
			v[d] = float32(h%1000)/1000 - 0.5
		}
		out[i] = domain.Normalize(v)
	}
	return out, nil
}

// mockCache is an in-memory Cache with the manifest-equality rule.
type mockCache struct {
	ids     []string
	vectors [][]float32
	saveErr error
	loads   int
	saves   int
}

func (m *mockCache) Load(_ context.Context, ids []string) ([][]float32, bool) {
	m.loads++
	if len(m.ids) != len(ids) {
		return nil, false
	}
	for i := range ids {
		if m.ids[i] != ids[i] {
			return nil, false
		}
	}
	return m.vectors, true
}

func (m *mockCache) Save(_ context.Context, ids []string, vectors [][]float32) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.ids = append([]string(nil), ids...)
	m.vectors = vectors
	return nil
}

func testCatalog() []catalog.Product {
	return []catalog.Product{
		catalog.New("a", "Air Runner", "light running shoe", "sneakers", "Nike", 25, "USD", "", "", "running"),
		catalog.New("b", "Court Classic", "retro court shoe", "sneakers", "Adidas", 30, "USD", "", "", "casual"),
		catalog.New("c", "Trail Hoodie", "warm fleece hoodie", "hoodie", "Nike", 45, "USD", "", "", "outdoor"),
		catalog.New("d", "City Backpack", "25l daily backpack", "backpack", "Osprey", 60, "USD", "", "", "travel"),
	}
}
