package usecase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smarties/backend/internal/domain"
)

func TestConfidencePolicy_Score(t *testing.T) {
	p := DefaultConfidencePolicy()

	testCases := []struct {
		name         string
		completeness float64
		similar      int
		certified    bool
		level        domain.SafetyLevel
		want         float64
	}{
		{"bare safe", 0, 0, false, domain.SafetySafe, 0.5},
		{"complete safe", 1, 0, false, domain.SafetySafe, 0.8},
		{"complete with similar and certification", 1, 3, true, domain.SafetySafe, 1.0},
		{"similar below minimum", 0, 2, false, domain.SafetySafe, 0.5},
		{"caution penalty", 1, 0, false, domain.SafetyCaution, 0.64},
		{"danger penalty", 1, 0, false, domain.SafetyDanger, 0.72},
		{"partial completeness", 0.6, 5, false, domain.SafetyDanger, (0.5 + 0.18 + 0.1) * 0.9},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Score(tc.completeness, tc.similar, tc.certified, tc.level)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestConfidencePolicy_ScoreAlwaysInUnitInterval(t *testing.T) {
	policies := []ConfidencePolicy{
		DefaultConfidencePolicy(),
		{Base: 0.9, CompletenessWeight: 0.5, SimilarProductsBonus: 0.3, SimilarProductsMin: 1, CertificationBonus: 0.3, CautionPenalty: 1, DangerPenalty: 1},
		{Base: -0.5, CautionPenalty: 0.5, DangerPenalty: 0.5},
	}
	completeness := []float64{-1, 0, 0.2, 0.4, 0.6, 0.8, 1, 1.5, math.NaN()}
	levels := []domain.SafetyLevel{domain.SafetySafe, domain.SafetyCaution, domain.SafetyDanger}

	for _, p := range policies {
		for _, c := range completeness {
			for similar := 0; similar <= 5; similar++ {
				for _, certified := range []bool{false, true} {
					for _, level := range levels {
						got := p.Score(c, similar, certified, level)
						if got < 0 || got > 1 || math.IsNaN(got) {
							t.Fatalf("Score(%v, %d, %v, %s) = %v, out of [0,1]", c, similar, certified, level, got)
						}
					}
				}
			}
		}
	}
}

func TestConfidencePolicy_ScoreContext(t *testing.T) {
	p := DefaultConfidencePolicy()

	rc := &domain.RAGContext{
		Product:         &domain.Product{Certifications: []string{"Halal"}},
		SimilarProducts: make([]domain.SimilarProduct, 3),
		Metadata:        domain.ContextMetadata{DataCompleteness: 1},
	}
	assert.InDelta(t, 1.0, p.ScoreContext(rc, domain.SafetySafe), 1e-9)
	assert.InDelta(t, 0.5, p.ScoreContext(nil, domain.SafetySafe), 1e-9)
}

func TestConfidencePolicy_CapDegraded(t *testing.T) {
	p := DefaultConfidencePolicy()

	assert.InDelta(t, 0.3, p.CapDegraded(0.72), 1e-9)
	assert.InDelta(t, 0.2, p.CapDegraded(0.2), 1e-9)
	assert.Equal(t, 0.0, p.CapDegraded(-1))
}
