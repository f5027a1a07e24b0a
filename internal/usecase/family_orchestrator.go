package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/platform/logger"
)

// ContextProvider builds analysis contexts. *ContextBuilder satisfies it.
type ContextProvider interface {
	BuildContext(ctx context.Context, product *domain.Product, profile *domain.UserProfile) *domain.RAGContext
}

// Analyzer produces a verdict from a context. *ComplianceAnalyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, rc *domain.RAGContext) domain.DietaryAnalysisResult
}

// FamilyOrchestrator analyzes one product for a primary profile and any number
// of family members.
type FamilyOrchestrator struct {
	contexts           ContextProvider
	analyzer           Analyzer
	maxConcurrency     int
	fallbackConfidence float64
	log                *logger.Logger
}

// NewFamilyOrchestrator creates a family orchestrator. maxConcurrency bounds
// the number of member analyses in flight.
func NewFamilyOrchestrator(
	contexts ContextProvider,
	analyzer Analyzer,
	maxConcurrency int,
	fallbackConfidence float64,
	log *logger.Logger,
) *FamilyOrchestrator {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	if fallbackConfidence <= 0 {
		fallbackConfidence = DefaultConfidencePolicy().Fallback
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &FamilyOrchestrator{
		contexts:           contexts,
		analyzer:           analyzer,
		maxConcurrency:     maxConcurrency,
		fallbackConfidence: fallbackConfidence,
		log:                log.With("service", "FamilyOrchestrator"),
	}
}

// AnalyzeForHousehold analyzes the primary profile first, then every member
// concurrently. Member results keep the input order, and a failing member gets
// the fallback result in its own slot. Only invalid input is returned as an error.
func (o *FamilyOrchestrator) AnalyzeForHousehold(
	ctx context.Context,
	product *domain.Product,
	primary *domain.UserProfile,
	members []domain.UserProfile,
) (*domain.HouseholdAnalysis, error) {
	if product == nil || primary == nil {
		return nil, domain.ErrInvalidRequest
	}

	household := &domain.HouseholdAnalysis{
		Primary: o.analyzeOne(ctx, product, primary),
		Members: make([]domain.MemberAnalysis, len(members)),
	}
	if len(members) == 0 {
		return household, nil
	}

	var g errgroup.Group
	g.SetLimit(o.maxConcurrency)
	for i := range members {
		profile := &members[i]
		g.Go(func() error {
			household.Members[i] = domain.MemberAnalysis{
				ProfileID:   profile.ID,
				ProfileName: profile.Name,
				Analysis:    o.analyzeOne(ctx, product, profile),
			}
			return nil
		})
	}
	_ = g.Wait() // member goroutines never return errors

	return household, nil
}

// analyzeOne runs context building and analysis for one profile. A panic in
// either step is contained to this profile.
func (o *FamilyOrchestrator) analyzeOne(ctx context.Context, product *domain.Product, profile *domain.UserProfile) (result domain.DietaryAnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("profile analysis panicked, using fallback",
				"profile_id", profile.ID,
				"upc", product.UPC,
				"panic", fmt.Sprint(r),
			)
			result = FallbackResult(o.fallbackConfidence)
		}
	}()

	rc := o.contexts.BuildContext(ctx, product, profile)
	result = o.analyzer.Analyze(ctx, rc)
	if result.Source == domain.SourceFallback {
		o.log.Warn("profile analysis fell back", "profile_id", profile.ID, "upc", product.UPC)
	}
	return result
}
