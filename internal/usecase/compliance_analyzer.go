package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/platform/logger"
)

const (
	fallbackExplanation = "Automated analysis could not be completed. Review the ingredient list manually and consult a healthcare professional before consuming this product."
	fallbackReason      = "analysis unavailable; manual review required"
	degradedExplanation = "unable to parse analysis"
)

// AnalyzerConfig holds configuration for the compliance analyzer
type AnalyzerConfig struct {
	Timeout         time.Duration
	Temperature     float32
	MaxTokens       int
	MaxAlternatives int
	Confidence      ConfidencePolicy
}

// ComplianceAnalyzer turns a RAGContext into a verdict. It never returns an
// error: every failure resolves to the safety-first fallback.
type ComplianceAnalyzer struct {
	reasoning       domain.ReasoningService
	screen          *EvidenceScreen
	prompts         *PromptBuilder
	timeout         time.Duration
	maxAlternatives int
	policy          ConfidencePolicy
	log             *logger.Logger
}

// NewComplianceAnalyzer creates a compliance analyzer
func NewComplianceAnalyzer(
	reasoning domain.ReasoningService,
	screen *EvidenceScreen,
	prompts *PromptBuilder,
	config AnalyzerConfig,
	log *logger.Logger,
) *ComplianceAnalyzer {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	maxAlts := config.MaxAlternatives
	if maxAlts <= 0 {
		maxAlts = 3
	}
	policy := config.Confidence
	if policy == (ConfidencePolicy{}) {
		policy = DefaultConfidencePolicy()
	}
	if screen == nil {
		screen = NewEvidenceScreen(nil, nil, ScreenConfig{})
	}
	if prompts == nil {
		prompts = NewPromptBuilder(config.Temperature, config.MaxTokens, nil)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ComplianceAnalyzer{
		reasoning:       reasoning,
		screen:          screen,
		prompts:         prompts,
		timeout:         timeout,
		maxAlternatives: maxAlts,
		policy:          policy,
		log:             log.With("service", "ComplianceAnalyzer"),
	}
}

// Analyze produces the verdict for one context.
func (a *ComplianceAnalyzer) Analyze(ctx context.Context, rc *domain.RAGContext) domain.DietaryAnalysisResult {
	if rc == nil || rc.Product == nil || a.reasoning == nil {
		a.log.Warn("analysis skipped: incomplete context")
		return FallbackResult(a.policy.Fallback)
	}

	screen := a.screen.Screen(rc.Product, rc.Restrictions)
	prompt := a.prompts.Build(rc, screen)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.reasoning.Complete(callCtx, prompt)
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, domain.ErrReasoningTimeout) {
			reason = "timeout"
		}
		a.log.Warn("reasoning service failed, using fallback",
			"upc", rc.Product.UPC,
			"reason", reason,
			"error", err,
		)
		return FallbackResult(a.policy.Fallback)
	}

	parsed, status := ParseAnalysis(raw, rc.Restrictions)
	switch status {
	case ParseFailed:
		a.log.Warn("reasoning reply unparseable, using fallback", "upc", rc.Product.UPC, "reply_len", len(raw))
		return FallbackResult(a.policy.Fallback)
	case ParseDegraded:
		a.log.Warn("reasoning reply did not fit schema, degrading to caution", "upc", rc.Product.UPC)
		parsed = ParsedAnalysis{
			SafetyLevel: domain.SafetyCaution,
			Violations:  []domain.DietaryViolation{},
			Explanation: degradedExplanation,
		}
	}

	violations, level := a.applySafetyFloor(rc, screen, parsed.Violations, parsed.SafetyLevel)

	result := domain.DietaryAnalysisResult{
		SafetyLevel: level,
		Violations:  violations,
		Confidence:  a.policy.ScoreContext(rc, level),
		Explanation: parsed.Explanation,
		Source:      domain.SourceModel,
	}
	if status == ParseDegraded {
		result.Source = domain.SourceDegraded
		result.Confidence = a.policy.CapDegraded(result.Confidence)
	}
	if result.Explanation == "" {
		result.Explanation = defaultExplanation(level)
	}
	if level != domain.SafetySafe {
		result.Alternatives = a.alternatives(rc, parsed.AlternativeReason)
	}
	return result
}

// applySafetyFloor adds high-severity violations the model missed and keeps the
// verdict consistent with them: a result with a high violation is never safe.
func (a *ComplianceAnalyzer) applySafetyFloor(
	rc *domain.RAGContext,
	screen ScreenReport,
	violations []domain.DietaryViolation,
	level domain.SafetyLevel,
) ([]domain.DietaryViolation, domain.SafetyLevel) {
	out := make([]domain.DietaryViolation, 0, len(violations))
	out = append(out, violations...)

	for _, r := range rc.Restrictions {
		if r.Severity != domain.SeverityHigh || hasViolationFor(out, r) {
			continue
		}
		direct := directHits(screen.HitsFor(r))
		if len(direct) == 0 {
			continue
		}
		a.log.Info("evidence screen added a missed violation",
			"upc", rc.Product.UPC,
			"restriction", r.Name,
			"source", direct[0].Source,
		)
		out = append(out, domain.DietaryViolation{
			Type:        r.Type,
			Restriction: r.Name,
			Severity:    domain.SeverityHigh,
			Reason:      fmt.Sprintf("Product lists %q, which conflicts with %s", direct[0].Evidence, r.Name),
			Ingredients: hitEvidence(direct),
		})
	}

	for _, v := range out {
		if v.Severity == domain.SeverityHigh {
			level = domain.SafetyDanger
			break
		}
	}
	return out, level
}

// alternatives suggests up to maxAlternatives similar products that pass the
// evidence screen for the same restrictions.
func (a *ComplianceAnalyzer) alternatives(rc *domain.RAGContext, reasons map[string]string) []domain.ProductAlternative {
	candidates := make([]domain.SimilarProduct, 0, len(rc.SimilarProducts))
	for _, sp := range rc.SimilarProducts {
		if sp.Product.UPC == "" || sp.Product.UPC == rc.Product.UPC {
			continue
		}
		candidates = append(candidates, sp)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	alts := make([]domain.ProductAlternative, 0, a.maxAlternatives)
	for _, sp := range candidates {
		if len(alts) == a.maxAlternatives {
			break
		}
		candidate := sp.Product
		if !a.screen.Screen(&candidate, rc.Restrictions).Clean() {
			continue
		}
		level := domain.SafetySafe
		if !candidate.HasIngredients() {
			level = domain.SafetyCaution
		}
		reason := reasons[candidate.UPC]
		if reason == "" {
			reason = fmt.Sprintf("%.0f%% similar and no conflicts found for your restrictions", sp.Similarity*100)
		}
		alts = append(alts, domain.ProductAlternative{
			UPC:             candidate.UPC,
			Name:            candidate.Name,
			SimilarityScore: sp.Similarity,
			SafetyLevel:     level,
			Reason:          reason,
		})
	}
	return alts
}

// FallbackResult is the safety-first verdict used whenever analysis cannot complete.
func FallbackResult(confidence float64) domain.DietaryAnalysisResult {
	return domain.DietaryAnalysisResult{
		SafetyLevel: domain.SafetyCaution,
		Violations: []domain.DietaryViolation{{
			Type:        domain.RestrictionMedical,
			Restriction: domain.AnalysisErrorRestriction,
			Severity:    domain.SeverityMedium,
			Reason:      fallbackReason,
			Ingredients: []string{},
		}},
		Confidence:   clamp01(confidence),
		Explanation:  fallbackExplanation,
		Alternatives: []domain.ProductAlternative{},
		Source:       domain.SourceFallback,
	}
}

func defaultExplanation(level domain.SafetyLevel) string {
	switch level {
	case domain.SafetySafe:
		return "No conflicts found with your dietary restrictions."
	case domain.SafetyDanger:
		return "This product conflicts with one or more of your dietary restrictions."
	default:
		return "Some ingredients may conflict with your dietary restrictions. Review before consuming."
	}
}

func hasViolationFor(violations []domain.DietaryViolation, r domain.DietaryRestriction) bool {
	name := singular(r.NormalizedName())
	for _, v := range violations {
		if singular(strings.ToLower(strings.TrimSpace(v.Restriction))) == name {
			return true
		}
	}
	return false
}

func hitEvidence(hits []ScreenHit) []string {
	seen := make(map[string]bool, len(hits))
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if !seen[h.Evidence] {
			seen[h.Evidence] = true
			out = append(out, h.Evidence)
		}
	}
	return out
}
