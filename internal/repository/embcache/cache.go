// Package embcache persists the catalog embedding matrix in a key-value
// store so restarts skip re-encoding an unchanged catalog.
package embcache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/brightbasket/reko/internal/db"
)

const keyPrefix = "reko:emb_cache:"

// matrix header: uint32 dims, then rows*dims little-endian float32s.
const headerLen = 4

// store is the consumer interface for the matrix cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Matrix caches the full embedding matrix keyed by the catalog id manifest.
// The manifest must match exactly (same ids, same order) for a hit; any
// catalog change invalidates the cache.
type Matrix struct {
	store      store
	namespace  string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a matrix cache. namespace isolates caches per encoder model.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed
// explicitly.
func New(s store, namespace string, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Matrix {
	return &Matrix{store: s, namespace: namespace, cacheTotal: cacheTotal, logger: logger}
}

// Load returns the cached matrix when the stored manifest equals ids.
// Any read failure, manifest drift, or corrupt payload is a miss.
func (m *Matrix) Load(ctx context.Context, ids []string) ([][]float32, bool) {
	manifest, err := m.store.Get(ctx, m.key("manifest"))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			m.logger.Warn("Failed to read embedding cache manifest", zap.Error(err))
		}
		return m.miss()
	}

	var cached []string
	if err := json.Unmarshal(manifest, &cached); err != nil {
		m.logger.Warn("Corrupt embedding cache manifest", zap.Error(err))
		return m.miss()
	}
	if !sameIDs(cached, ids) {
		return m.miss()
	}

	raw, err := m.store.Get(ctx, m.key("matrix"))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			m.logger.Warn("Failed to read embedding cache matrix", zap.Error(err))
		}
		return m.miss()
	}

	vectors, err := bytesToMatrix(raw, len(ids))
	if err != nil {
		m.logger.Warn("Corrupt embedding cache matrix", zap.Error(err))
		return m.miss()
	}

	m.incCache("hit")
	return vectors, true
}

// Save stores the matrix and then the manifest, so a readable manifest
// always points at a complete matrix.
func (m *Matrix) Save(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("manifest/matrix mismatch: %d ids, %d vectors", len(ids), len(vectors))
	}

	raw, err := matrixToBytes(vectors)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, m.key("matrix"), raw); err != nil {
		return fmt.Errorf("save embedding matrix: %w", err)
	}

	manifest, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := m.store.Set(ctx, m.key("manifest"), manifest); err != nil {
		return fmt.Errorf("save embedding manifest: %w", err)
	}
	return nil
}

func (m *Matrix) key(part string) string {
	return keyPrefix + m.namespace + ":" + part
}

func (m *Matrix) miss() ([][]float32, bool) {
	m.incCache("miss")
	return nil, false
}

func (m *Matrix) incCache(result string) {
	if m.cacheTotal != nil {
		m.cacheTotal.WithLabelValues(result).Inc()
	}
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func matrixToBytes(vectors [][]float32) ([]byte, error) {
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	buf := make([]byte, headerLen, headerLen+len(vectors)*dims*4)
	binary.LittleEndian.PutUint32(buf, uint32(dims))

	row := make([]byte, 4)
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("ragged matrix: row %d has %d dims, want %d", i, len(v), dims)
		}
		for _, f := range v {
			binary.LittleEndian.PutUint32(row, math.Float32bits(f))
			buf = append(buf, row...)
		}
	}
	return buf, nil
}

func bytesToMatrix(data []byte, rows int) ([][]float32, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("matrix payload too short: %d bytes", len(data))
	}
	dims := int(binary.LittleEndian.Uint32(data))
	body := data[headerLen:]
	if len(body) != rows*dims*4 {
		return nil, fmt.Errorf("matrix payload size %d, want %d (%d rows x %d dims)",
			len(body), rows*dims*4, rows, dims)
	}

	vectors := make([][]float32, rows)
	for i := range vectors {
		vec := make([]float32, dims)
		for j := range vec {
			off := (i*dims + j) * 4
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off:]))
		}
		vectors[i] = vec
	}
	return vectors, nil
}
