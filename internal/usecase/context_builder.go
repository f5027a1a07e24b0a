package usecase

import (
	"context"
	"time"

	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/guideline"
	"github.com/smarties/backend/internal/platform/logger"
)

// Data completeness weights
const (
	completenessIngredients    = 0.4
	completenessNutrition      = 0.2
	completenessCertifications = 0.2
	completenessAllergens      = 0.2
)

// ContextBuilderConfig holds configuration for the context builder
type ContextBuilderConfig struct {
	TopK                int
	SimilarityThreshold float64
	Now                 func() time.Time
}

// ContextBuilder assembles the per-(product, profile) context for analysis.
type ContextBuilder struct {
	similarity domain.SimilaritySearch
	guidelines *guideline.Table
	topK       int
	threshold  float64
	now        func() time.Time
	log        *logger.Logger
}

// NewContextBuilder creates a context builder. similarity may be nil when no
// similarity backend is configured.
func NewContextBuilder(
	similarity domain.SimilaritySearch,
	guidelines *guideline.Table,
	config ContextBuilderConfig,
	log *logger.Logger,
) *ContextBuilder {
	topK := config.TopK
	if topK <= 0 {
		topK = 5
	}
	threshold := config.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ContextBuilder{
		similarity: similarity,
		guidelines: guidelines,
		topK:       topK,
		threshold:  threshold,
		now:        now,
		log:        log.With("service", "ContextBuilder"),
	}
}

// BuildContext never fails. A similarity failure yields an empty similar-products list.
func (b *ContextBuilder) BuildContext(ctx context.Context, product *domain.Product, profile *domain.UserProfile) *domain.RAGContext {
	restrictions := profile.UniqueRestrictions()
	if restrictions == nil {
		restrictions = []domain.DietaryRestriction{}
	}

	similar := b.findSimilar(ctx, product)

	return &domain.RAGContext{
		Product:         product,
		Profile:         profile,
		Restrictions:    restrictions,
		SimilarProducts: similar,
		Guidelines:      b.selectGuidelines(restrictions),
		Metadata: domain.ContextMetadata{
			DataCompleteness:     DataCompleteness(product),
			SimilarityThreshold:  b.threshold,
			SimilarProductsFound: len(similar),
			BuiltAt:              b.now(),
		},
	}
}

func (b *ContextBuilder) findSimilar(ctx context.Context, product *domain.Product) []domain.SimilarProduct {
	if b.similarity == nil || product == nil || len(product.Embedding) == 0 {
		return []domain.SimilarProduct{}
	}

	found, err := b.similarity.FindSimilar(ctx, product.Embedding, domain.SimilarityQuery{
		Limit:      b.topK,
		Threshold:  b.threshold,
		ExcludeUPC: product.UPC,
		Category:   product.Category,
	})
	if err != nil {
		b.log.Warn("similarity search failed, continuing without similar products",
			"upc", product.UPC,
			"error", err,
		)
		return []domain.SimilarProduct{}
	}

	// The collaborator is trusted for ordering, not for filtering.
	out := make([]domain.SimilarProduct, 0, len(found))
	for _, sp := range found {
		if sp.Product.UPC == product.UPC || sp.Similarity < b.threshold {
			continue
		}
		if product.Category != "" && sp.Product.Category != "" && sp.Product.Category != product.Category {
			continue
		}
		out = append(out, sp)
		if len(out) == b.topK {
			break
		}
	}
	return out
}

// selectGuidelines looks up one guideline per restriction. Restrictions without
// a guideline are skipped, and two restrictions resolving to the same guideline share it.
func (b *ContextBuilder) selectGuidelines(restrictions []domain.DietaryRestriction) []domain.GuidelineRef {
	refs := make([]domain.GuidelineRef, 0, len(restrictions))
	seen := make(map[string]bool, len(restrictions))
	for _, r := range restrictions {
		g, ok := b.guidelines.Lookup(r)
		if !ok {
			b.log.Debug("no guideline for restriction", "restriction", r.Name, "type", r.Type)
			continue
		}
		if seen[g.Key] {
			continue
		}
		seen[g.Key] = true
		refs = append(refs, g.Ref())
	}
	return refs
}

// DataCompleteness scores how much of the product data needed for a verdict is present.
func DataCompleteness(p *domain.Product) float64 {
	if p == nil {
		return 0
	}
	score := 0.0
	if p.HasIngredients() {
		score += completenessIngredients
	}
	if p.HasNutrition {
		score += completenessNutrition
	}
	if len(p.Certifications) > 0 {
		score += completenessCertifications
	}
	if len(p.Allergens) > 0 {
		score += completenessAllergens
	}
	return clamp01(score)
}
