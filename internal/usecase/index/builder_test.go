package index

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestBuild_ComputesAndSaves(t *testing.T) {
	enc := &mockEncoder{dims: 8}
	cache := &mockCache{}
	b := NewBuilder(enc, zap.NewNop()).WithCache(cache).WithBatching(2, 2)

	snap, err := b.Build(context.Background(), testCatalog())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if snap.Len() != 4 {
		t.Errorf("Len() = %d, want 4", snap.Len())
	}
	if snap.Dims() != 8 {
		t.Errorf("Dims() = %d, want 8", snap.Dims())
	}
	if cache.saves != 1 {
		t.Errorf("cache saves = %d, want 1", cache.saves)
	}
	if enc.calls != 2 {
		t.Errorf("encoder calls = %d, want 2 batches", enc.calls)
	}
}

func TestBuild_CacheRoundTripIdenticalRankings(t *testing.T) {
	enc := &mockEncoder{dims: 8}
	cache := &mockCache{}
	b := NewBuilder(enc, zap.NewNop()).WithCache(cache)

	first, err := b.Build(context.Background(), testCatalog())
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}

	// Second build with an unchanged catalog must hit the cache...
	encCalls := enc.calls
	second, err := b.Build(context.Background(), testCatalog())
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if enc.calls != encCalls {
		t.Errorf("encoder called on cache hit (%d -> %d calls)", encCalls, enc.calls)
	}

	// ...and produce identical rankings for any query.
	query := first.Vector(0)
	r1, err := Search(first, query, 4)
	if err != nil {
		t.Fatalf("Search first: %v", err)
	}
	r2, err := Search(second, query, 4)
	if err != nil {
		t.Fatalf("Search second: %v", err)
	}
	if len(r1) != len(r2) {
		t.Fatalf("result lengths differ: %d vs %d", len(r1), len(r2))
	}
	for i := range r1 {
		if r1[i].Index() != r2[i].Index() || r1[i].Score() != r2[i].Score() {
			t.Errorf("rank %d differs: (%d, %v) vs (%d, %v)",
				i, r1[i].Index(), r1[i].Score(), r2[i].Index(), r2[i].Score())
		}
	}
}

func TestBuild_StaleManifestRecomputes(t *testing.T) {
	enc := &mockEncoder{dims: 8}
	cache := &mockCache{
		ids:     []string{"a", "b", "x", "d"}, // order drifted
		vectors: [][]float32{{1}, {1}, {1}, {1}},
	}
	b := NewBuilder(enc, zap.NewNop()).WithCache(cache)

	snap, err := b.Build(context.Background(), testCatalog())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if enc.calls == 0 {
		t.Error("stale manifest was treated as a cache hit")
	}
	if snap.Dims() != 8 {
		t.Errorf("Dims() = %d, want recomputed 8", snap.Dims())
	}
}

func TestBuild_SaveFailureIsNonFatal(t *testing.T) {
	enc := &mockEncoder{dims: 8}
	cache := &mockCache{saveErr: errors.New("disk full")}
	b := NewBuilder(enc, zap.NewNop()).WithCache(cache)

	if _, err := b.Build(context.Background(), testCatalog()); err != nil {
		t.Fatalf("Build failed on cache write error: %v", err)
	}
}

func TestBuild_EncoderError(t *testing.T) {
	enc := &mockEncoder{dims: 8, err: errors.New("provider down")}
	b := NewBuilder(enc, zap.NewNop())

	if _, err := b.Build(context.Background(), testCatalog()); err == nil {
		t.Fatal("Build succeeded despite encoder failure")
	}
}
