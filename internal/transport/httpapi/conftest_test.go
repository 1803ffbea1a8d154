package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brightbasket/reko/internal/domain/catalog"
	healthuc "github.com/brightbasket/reko/internal/usecase/health"
	recommenduc "github.com/brightbasket/reko/internal/usecase/recommend"
)

type mockTextEncoder struct {
	vec []float32
	err error
}

func (m *mockTextEncoder) EncodeText(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vec
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

func testSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	products := []catalog.Product{
		catalog.New("a", "Road Runner", "light running shoe", "sneakers", "Nike", 80, "USD", "http://img/a", "http://shop/a", "running"),
		catalog.New("b", "Trail Runner", "grippy trail shoe", "sneakers", "Adidas", 90, "USD", "", "", "trail"),
		catalog.New("c", "Fleece Hoodie", "warm hoodie", "hoodie", "Nike", 45, "USD", "", "", "outdoor"),
		catalog.New("d", "Wool Socks", "warm socks", "socks", "Smartwool", 15, "USD", "", "", "winter"),
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0.995, 0.0999, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	snap, err := catalog.NewSnapshot(products, vectors)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snap
}

// newTestServer wires a full server over an in-memory snapshot with stub
// encoders and returns it behind an httptest server.
func newTestServer(t *testing.T, text *mockTextEncoder, image *mockImageEncoder) *httptest.Server {
	t.Helper()

	holder := catalog.NewHolder(testSnapshot(t))
	logger := zap.NewNop()

	recSvc := recommenduc.New(holder, text, image, logger)
	healthSvc := healthuc.New(holder, nil, nil)

	srv := NewServer(recSvc, healthSvc, holder, logger)
	r := chi.NewRouter()
	srv.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}
