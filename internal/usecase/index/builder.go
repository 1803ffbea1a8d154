// Package index builds the embedding store and answers raw similarity
// queries against it.
package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brightbasket/reko/internal/domain"
	"github.com/brightbasket/reko/internal/domain/catalog"
)

const (
	defaultBatchSize = 64
	defaultWorkers   = 4
)

// Builder encodes the catalog corpus into an immutable snapshot, consulting
// the cache first. Building is the expensive one-time startup phase; the
// returned snapshot is read-only afterwards.
type Builder struct {
	encoder   Encoder
	cache     Cache
	logger    *zap.Logger
	batchSize int
	workers   int
}

// NewBuilder creates a snapshot builder.
func NewBuilder(encoder Encoder, logger *zap.Logger) *Builder {
	return &Builder{
		encoder:   encoder,
		logger:    logger,
		batchSize: defaultBatchSize,
		workers:   defaultWorkers,
	}
}

// WithCache attaches an embedding cache.
func (b *Builder) WithCache(c Cache) *Builder {
	b.cache = c
	return b
}

// WithBatching overrides encode batch size and worker count.
func (b *Builder) WithBatching(batchSize, workers int) *Builder {
	if batchSize > 0 {
		b.batchSize = batchSize
	}
	if workers > 0 {
		b.workers = workers
	}
	return b
}

// Build produces a snapshot for the given catalog. Cached vectors are used
// only when the cached id manifest matches the catalog's id sequence
// element-wise; anything else silently recomputes. Cache write failures are
// logged and ignored.
func (b *Builder) Build(ctx context.Context, products []catalog.Product) (*catalog.Snapshot, error) {
	ids := make([]string, len(products))
	for i := range products {
		ids[i] = products[i].ID()
	}

	if b.cache != nil {
		if vectors, ok := b.cache.Load(ctx, ids); ok {
			b.logger.Info("Loaded embeddings from cache", zap.Int("entries", len(vectors)))
			return catalog.NewSnapshot(products, vectors)
		}
		b.logger.Info("Embedding cache miss, recomputing", zap.Int("entries", len(products)))
	}

	vectors, err := b.encode(ctx, products)
	if err != nil {
		return nil, err
	}

	if b.cache != nil {
		if err := b.cache.Save(ctx, ids, vectors); err != nil {
			b.logger.Warn("Failed to persist embedding cache", zap.Error(err))
		}
	}

	return catalog.NewSnapshot(products, vectors)
}

func (b *Builder) encode(ctx context.Context, products []catalog.Product) ([][]float32, error) {
	vectors := make([][]float32, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for start := 0; start < len(products); start += b.batchSize {
		start := start
		end := min(start+b.batchSize, len(products))
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = products[i].CorpusText()
			}

			embs, err := b.encoder.EncodeText(gctx, texts)
			if err != nil {
				return fmt.Errorf("encode corpus batch [%d:%d]: %w", start, end, err)
			}
			if len(embs) != end-start {
				return fmt.Errorf("encoder returned %d vectors for %d texts: %w",
					len(embs), end-start, domain.ErrEncoderError)
			}

			for i, emb := range embs {
				vectors[start+i] = domain.Normalize(emb)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
