package recommend

import (
	"context"
	"testing"

	"github.com/brightbasket/reko/internal/domain"
	"github.com/brightbasket/reko/internal/domain/catalog"
)

// mockTextEncoder maps known texts to fixed vectors and falls back to def.
type mockTextEncoder struct {
	vecs map[string][]float32
	def  []float32
	err  error
}

func (m *mockTextEncoder) EncodeText(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vecs[t]; ok {
			out[i] = v
		} else {
			out[i] = m.def
		}
	}
	return out, nil
}

type mockImageEncoder struct {
	vec []float32
	err error
}

func (m *mockImageEncoder) EncodeImage(_ context.Context, _ []byte) ([]float32, error) {
	return m.vec, m.err
}

func serviceSnap(t *testing.T) *catalog.Snapshot {
	t.Helper()
	products := []catalog.Product{
		catalog.New("a", "Road Runner", "light running shoe", "sneakers", "Nike", 80, "USD", "", "", "running"),
		catalog.New("b", "Trail Runner", "grippy trail shoe", "sneakers", "Adidas", 90, "USD", "", "", "trail"),
		catalog.New("c", "Fleece Hoodie", "warm hoodie", "hoodie", "Nike", 45, "USD", "", "", "outdoor"),
		catalog.New("d", "Wool Socks", "warm socks", "socks", "Smartwool", 15, "USD", "", "", "winter"),
	}
	vectors := [][]float32{
		{1, 0, 0},
		domain.Normalize([]float32{0.9, 0.1, 0}),
		{0, 1, 0},
		{0, 0, 1},
	}
	snap, err := catalog.NewSnapshot(products, vectors)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snap
}
