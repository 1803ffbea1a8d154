package index

import "context"

// Encoder vectorizes the catalog corpus. Vectors must be unit-norm and
// dimensionally consistent across calls.
type Encoder interface {
	EncodeText(ctx context.Context, texts []string) ([][]float32, error)
}

// Cache persists the computed embedding matrix keyed by the catalog's id
// order. Load returns (nil, false) on any mismatch or read failure — a
// cache miss is a degraded condition, never an error.
type Cache interface {
	Load(ctx context.Context, ids []string) ([][]float32, bool)
	Save(ctx context.Context, ids []string, vectors [][]float32) error
}
