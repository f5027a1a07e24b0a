package usecase

import "github.com/smarties/backend/internal/domain"

// ConfidencePolicy holds the heuristic constants used to score a verdict.
// They are a documented starting policy, not calibrated values, so they come from config.
type ConfidencePolicy struct {
	Base                 float64
	CompletenessWeight   float64
	SimilarProductsBonus float64
	SimilarProductsMin   int
	CertificationBonus   float64
	CautionPenalty       float64
	DangerPenalty        float64
	Fallback             float64
	Degraded             float64 // ceiling for verdicts built from a reply that did not fit the schema
}

// DefaultConfidencePolicy returns the stock scoring constants.
func DefaultConfidencePolicy() ConfidencePolicy {
	return ConfidencePolicy{
		Base:                 0.5,
		CompletenessWeight:   0.3,
		SimilarProductsBonus: 0.1,
		SimilarProductsMin:   3,
		CertificationBonus:   0.1,
		CautionPenalty:       0.8,
		DangerPenalty:        0.9,
		Fallback:             0.1,
		Degraded:             0.3,
	}
}

// Score computes confidence for a verdict. The result is always within [0,1].
func (p ConfidencePolicy) Score(completeness float64, similarFound int, certified bool, level domain.SafetyLevel) float64 {
	score := p.Base + p.CompletenessWeight*clamp01(completeness)
	if similarFound >= p.SimilarProductsMin {
		score += p.SimilarProductsBonus
	}
	if certified {
		score += p.CertificationBonus
	}

	switch level {
	case domain.SafetyCaution:
		score *= p.CautionPenalty
	case domain.SafetyDanger:
		score *= p.DangerPenalty
	}
	return clamp01(score)
}

// ScoreContext scores a verdict against the context it was produced from.
func (p ConfidencePolicy) ScoreContext(rc *domain.RAGContext, level domain.SafetyLevel) float64 {
	if rc == nil {
		return p.Score(0, 0, false, level)
	}
	certified := rc.Product != nil && len(rc.Product.Certifications) > 0
	return p.Score(rc.Metadata.DataCompleteness, len(rc.SimilarProducts), certified, level)
}

// CapDegraded limits the confidence of a degraded verdict to the Degraded ceiling.
func (p ConfidencePolicy) CapDegraded(score float64) float64 {
	return clamp01(min(score, p.Degraded))
}

func clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
