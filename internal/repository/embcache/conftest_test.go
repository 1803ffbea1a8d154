package embcache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/brightbasket/reko/internal/db"
)

// mockKVStore implements the consumer interface for tests. Writes land in
// data unless setFn overrides them.
type mockKVStore struct {
	data  map[string][]byte
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = value
	return nil
}

func newTestMatrix(t *testing.T) (*Matrix, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	return New(ms, "test-model", nil, zap.NewNop()), ms
}
