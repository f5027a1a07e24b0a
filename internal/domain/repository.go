package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for the scan-result cache.
// Payloads are opaque serialized bytes so memory and redis backends behave the same.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProductLookup resolves a UPC to a product.
// Returns ErrProductNotFound or ErrProductLookupFailed on failure.
type ProductLookup interface {
	Lookup(ctx context.Context, upc string) (*Product, error)
}

// SimilaritySearch finds products near a vector. Callers treat it as best-effort.
type SimilaritySearch interface {
	FindSimilar(ctx context.Context, vector []float32, query SimilarityQuery) ([]SimilarProduct, error)
}

// Prompt is a structured request for the reasoning service.
type Prompt struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// ReasoningService is the external LLM-like collaborator.
type ReasoningService interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// EmbeddingProvider turns texts into vectors, one per input in order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
