// Package vectorindex is an in-process similarity backend for development and tests.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/smarties/backend/internal/domain"
)

type entry struct {
	product domain.Product
	vector  []float32 // unit length
}

// MemoryIndex is a brute-force cosine similarity index.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]entry)}
}

// Index adds or replaces a product. Products without a usable vector are rejected.
func (idx *MemoryIndex) Index(ctx context.Context, product *domain.Product) error {
	if product == nil || product.UPC == "" {
		return fmt.Errorf("%w: product with upc required", domain.ErrInvalidRequest)
	}
	vec, ok := unit(product.Embedding)
	if !ok {
		return fmt.Errorf("%w: product %s has no usable embedding", domain.ErrInvalidRequest, product.UPC)
	}

	stored := *product
	stored.Embedding = nil

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[product.UPC] = entry{product: stored, vector: vec}
	return nil
}

// FindSimilar returns up to query.Limit products at or above query.Threshold,
// most similar first.
func (idx *MemoryIndex) FindSimilar(ctx context.Context, vector []float32, query domain.SimilarityQuery) ([]domain.SimilarProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSimilarityUnavailable, err)
	}
	q, ok := unit(vector)
	if !ok {
		return []domain.SimilarProduct{}, nil
	}

	idx.mu.RLock()
	results := make([]domain.SimilarProduct, 0, len(idx.entries))
	for upc, e := range idx.entries {
		if upc == query.ExcludeUPC || len(e.vector) != len(q) {
			continue
		}
		if query.Category != "" && e.product.Category != query.Category {
			continue
		}
		sim := dot(q, e.vector)
		if sim < query.Threshold {
			continue
		}
		results = append(results, domain.SimilarProduct{Product: e.product, Similarity: sim})
	}
	idx.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Product.UPC < results[j].Product.UPC
	})
	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// Len returns the number of indexed products.
func (idx *MemoryIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Reset clears the index.
func (idx *MemoryIndex) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]entry)
}

func unit(v []float32) ([]float32, bool) {
	var sum float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		sum += f * f
	}
	if sum == 0 {
		return nil, false
	}
	n := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out, true
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
