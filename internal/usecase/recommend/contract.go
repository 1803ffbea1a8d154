package recommend

import (
	"context"

	"github.com/brightbasket/reko/internal/domain/catalog"
)

// SnapshotSource supplies the currently published catalog snapshot. Each
// query loads the snapshot once and works against it for its whole
// lifetime, so a concurrent rebuild is never observed mid-query.
type SnapshotSource interface {
	Current() *catalog.Snapshot
}

// TextEncoder vectorizes query text into a unit-norm embedding.
type TextEncoder interface {
	EncodeText(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageEncoder vectorizes a query image into a unit-norm embedding.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, image []byte) ([]float32, error)
}
