package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/domain"
	"docsearch/internal/searchindex/memory"
)

// countingStore wraps a real store and counts backend calls.
type countingStore struct {
	domain.SearchStore
	getCalls    int
	createCalls int
	getErr      error
}

func (c *countingStore) GetIndex(ctx context.Context, name string) (domain.IndexDefinition, error) {
	c.getCalls++
	if c.getErr != nil {
		return domain.IndexDefinition{}, c.getErr
	}
	return c.SearchStore.GetIndex(ctx, name)
}

func (c *countingStore) CreateIndex(ctx context.Context, def domain.IndexDefinition) error {
	c.createCalls++
	return c.SearchStore.CreateIndex(ctx, def)
}

func testDefinition(dims int) domain.IndexDefinition {
	return domain.IndexDefinition{
		Name:     "earnings-index",
		Vector:   domain.VectorConfig{Dimensions: dims, Algorithm: "hnsw", Profile: "p"},
		Semantic: domain.SemanticConfig{Name: "s", ContentFields: []string{"content"}},
	}
}

func TestEnsureIndexIsIdempotent(t *testing.T) {
	store := &countingStore{SearchStore: memory.NewStore()}
	m := NewManager(store, nil)
	ctx := context.Background()

	created, err := m.EnsureIndex(ctx, testDefinition(4))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.EnsureIndex(ctx, testDefinition(4))
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, store.createCalls)
	assert.Equal(t, 2, store.getCalls)
}

func TestEnsureIndexPropagatesTransportErrors(t *testing.T) {
	transportErr := errors.New("connection refused")
	store := &countingStore{SearchStore: memory.NewStore(), getErr: transportErr}
	m := NewManager(store, nil)

	_, err := m.EnsureIndex(context.Background(), testDefinition(4))
	assert.ErrorIs(t, err, transportErr)
	assert.Equal(t, 0, store.createCalls)
}

func TestEnsureIndexAcceptsMismatchedExistingSchema(t *testing.T) {
	store := &countingStore{SearchStore: memory.NewStore()}
	m := NewManager(store, nil)
	ctx := context.Background()

	_, err := m.EnsureIndex(ctx, testDefinition(4))
	require.NoError(t, err)

	// A different dimension on an existing index is warned about, not fatal.
	created, err := m.EnsureIndex(ctx, testDefinition(8))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, store.createCalls)
}
