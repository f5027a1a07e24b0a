package vectorindex

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarties/backend/internal/domain"
)

func product(upc, category string, vec ...float32) *domain.Product {
	return &domain.Product{UPC: upc, Name: "Product " + upc, Category: category, Embedding: vec}
}

func seeded(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	for _, p := range []*domain.Product{
		product("self", "spreads", 1, 0, 0),
		product("close", "spreads", 0.95, 0.05, 0),
		product("near", "spreads", 0.8, 0.2, 0),
		product("far", "spreads", 0, 1, 0),
		product("other-category", "snacks", 1, 0, 0),
	} {
		require.NoError(t, idx.Index(context.Background(), p))
	}
	return idx
}

func TestMemoryIndex_FindSimilar(t *testing.T) {
	idx := seeded(t)

	results, err := idx.FindSimilar(context.Background(), []float32{2, 0, 0}, domain.SimilarityQuery{
		Limit:      5,
		Threshold:  0.7,
		ExcludeUPC: "self",
		Category:   "spreads",
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "close", results[0].Product.UPC)
	assert.Equal(t, "near", results[1].Product.UPC)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
	assert.Nil(t, results[0].Product.Embedding)
}

func TestMemoryIndex_Limit(t *testing.T) {
	idx := seeded(t)

	results, err := idx.FindSimilar(context.Background(), []float32{1, 0, 0}, domain.SimilarityQuery{Limit: 2, Threshold: 0})

	require.NoError(t, err)
	require.Len(t, results, 2)
	// Ties on similarity are ordered by UPC.
	assert.Equal(t, "other-category", results[0].Product.UPC)
	assert.Equal(t, "self", results[1].Product.UPC)
}

func TestMemoryIndex_EdgeCases(t *testing.T) {
	idx := seeded(t)
	ctx := context.Background()

	results, err := idx.FindSimilar(ctx, []float32{0, 0, 0}, domain.SimilarityQuery{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.FindSimilar(ctx, []float32{1, 0}, domain.SimilarityQuery{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, results)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = idx.FindSimilar(cancelled, []float32{1, 0, 0}, domain.SimilarityQuery{Limit: 5})
	assert.ErrorIs(t, err, domain.ErrSimilarityUnavailable)
}

func TestMemoryIndex_Index(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	assert.ErrorIs(t, idx.Index(ctx, nil), domain.ErrInvalidRequest)
	assert.ErrorIs(t, idx.Index(ctx, product("a", "")), domain.ErrInvalidRequest)
	assert.ErrorIs(t, idx.Index(ctx, product("", "", 1)), domain.ErrInvalidRequest)

	p := product("a", "", 3, 4)
	require.NoError(t, idx.Index(ctx, p))
	require.NoError(t, idx.Index(ctx, product("a", "", 4, 3)))
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, []float32{3, 4}, p.Embedding)

	idx.Reset()
	assert.Equal(t, 0, idx.Len())
}

func TestMemoryIndex_Concurrent(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = idx.Index(ctx, product(string(rune('a'+i)), "", float32(i+1), 1))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = idx.FindSimilar(ctx, []float32{1, 1}, domain.SimilarityQuery{Limit: 3})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, idx.Len())
}
