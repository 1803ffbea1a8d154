package health

import (
	"context"

	"github.com/brightbasket/reko/internal/domain/catalog"
)

// SnapshotSource exposes the currently published catalog snapshot.
type SnapshotSource interface {
	Current() *catalog.Snapshot
}

// StorePinger checks cache store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EncoderChecker checks embedding provider availability.
type EncoderChecker interface {
	HealthCheck(ctx context.Context) error
}
