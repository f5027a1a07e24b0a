package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/infrastructure/cache"
	"github.com/smarties/backend/internal/platform/logger"
)

// EmbeddingServiceConfig holds configuration for the embedding service
type EmbeddingServiceConfig struct {
	Model      string
	Dimensions int
}

// EmbeddingInfo describes the embedding model and cache state.
type EmbeddingInfo struct {
	Model      string         `json:"model"`
	Dimensions int            `json:"dimensions"`
	Cache      cache.LRUStats `json:"cache"`
}

// EmbeddingService produces normalized vectors for ingredient text, product
// names and allergen lists. Every call goes through the content-addressed cache.
type EmbeddingService struct {
	provider     domain.EmbeddingProvider
	cache        *cache.LRUCache[[]float32]
	preprocessor *IngredientPreprocessor
	model        string
	dimensions   int
	log          *logger.Logger
}

// NewEmbeddingService creates an embedding service. vectors may be nil to disable caching.
func NewEmbeddingService(
	provider domain.EmbeddingProvider,
	vectors *cache.LRUCache[[]float32],
	preprocessor *IngredientPreprocessor,
	config EmbeddingServiceConfig,
	log *logger.Logger,
) *EmbeddingService {
	if preprocessor == nil {
		preprocessor = NewIngredientPreprocessor(nil)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &EmbeddingService{
		provider:     provider,
		cache:        vectors,
		preprocessor: preprocessor,
		model:        config.Model,
		dimensions:   config.Dimensions,
		log:          log.With("service", "EmbeddingService"),
	}
}

// IngredientEmbedding embeds an ingredient statement after label and percentage cleanup.
func (s *EmbeddingService) IngredientEmbedding(ctx context.Context, ingredients string) ([]float32, error) {
	return s.embedOne(ctx, cache.KindIngredients, s.preprocessor.PreprocessIngredients(ingredients))
}

// ProductNameEmbedding embeds a product name.
func (s *EmbeddingService) ProductNameEmbedding(ctx context.Context, name string) ([]float32, error) {
	return s.embedOne(ctx, cache.KindProductName, strings.ToLower(strings.TrimSpace(name)))
}

// AllergenEmbedding embeds an allergen list joined with ", ".
func (s *EmbeddingService) AllergenEmbedding(ctx context.Context, allergens []string) ([]float32, error) {
	cleaned := cleanList(allergens)
	return s.embedOne(ctx, cache.KindAllergens, strings.ToLower(strings.Join(cleaned, ", ")))
}

// BatchEmbeddings embeds texts of one kind. Cached texts are served locally and
// only the misses reach the provider, in a single request.
func (s *EmbeddingService) BatchEmbeddings(ctx context.Context, kind cache.Kind, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	var (
		missTexts []string
		missIdx   []int
	)
	for i, text := range texts {
		normalized := s.normalize(kind, text)
		if normalized == "" {
			return nil, fmt.Errorf("%w: empty text at index %d", domain.ErrInvalidRequest, i)
		}
		if vec, ok := s.cache.Get(cache.ContentKey(kind, normalized)); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, normalized)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := s.generate(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, vec := range vectors {
		out[missIdx[j]] = vec
		s.cache.Set(cache.ContentKey(kind, missTexts[j]), vec)
	}
	return out, nil
}

// Info reports the configured model and cache counters.
func (s *EmbeddingService) Info() EmbeddingInfo {
	return EmbeddingInfo{
		Model:      s.model,
		Dimensions: s.dimensions,
		Cache:      s.cache.Stats(),
	}
}

func (s *EmbeddingService) normalize(kind cache.Kind, text string) string {
	if kind == cache.KindIngredients {
		return s.preprocessor.PreprocessIngredients(text)
	}
	return strings.ToLower(strings.TrimSpace(text))
}

func (s *EmbeddingService) embedOne(ctx context.Context, kind cache.Kind, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty %s text", domain.ErrInvalidRequest, kind)
	}

	key := cache.ContentKey(kind, text)
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}

	vectors, err := s.generate(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, vectors[0])
	return vectors[0], nil
}

// generate calls the provider and validates and normalizes every vector.
func (s *EmbeddingService) generate(ctx context.Context, texts []string) ([][]float32, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", domain.ErrEmbeddingFailed)
	}

	start := time.Now()
	vectors, err := s.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d vectors, got %d", domain.ErrEmbeddingFailed, len(texts), len(vectors))
	}

	out := make([][]float32, len(vectors))
	for i, vec := range vectors {
		normalized, err := s.validate(vec)
		if err != nil {
			return nil, fmt.Errorf("%w: vector %d: %v", domain.ErrEmbeddingFailed, i, err)
		}
		out[i] = normalized
	}

	s.log.Debug("generated embeddings",
		"count", len(texts),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// validate checks dimension and finiteness and returns an L2-normalized copy.
func (s *EmbeddingService) validate(vec []float32) ([]float32, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty vector")
	}
	if s.dimensions > 0 && len(vec) != s.dimensions {
		return nil, fmt.Errorf("dimension %d, want %d", len(vec), s.dimensions)
	}

	var sum float64
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("non-finite value")
		}
		sum += f * f
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, fmt.Errorf("zero vector")
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}
