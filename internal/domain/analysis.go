package domain

import "time"

// SafetyLevel is the overall verdict for a product and profile.
type SafetyLevel string

const (
	SafetySafe    SafetyLevel = "safe"
	SafetyCaution SafetyLevel = "caution"
	SafetyDanger  SafetyLevel = "danger"
)

// Valid reports whether l is one of the three verdicts.
func (l SafetyLevel) Valid() bool {
	return l == SafetySafe || l == SafetyCaution || l == SafetyDanger
}

// AnalysisSource records which path produced a result.
type AnalysisSource string

const (
	SourceModel    AnalysisSource = "model"    // parsed reasoning-service output
	SourceDegraded AnalysisSource = "degraded" // output found but did not fit the schema
	SourceFallback AnalysisSource = "fallback" // safety-first fallback
)

// AnalysisErrorRestriction is the restriction name carried by the fallback violation.
const AnalysisErrorRestriction = "analysis_error"

// DietaryViolation is a single way a product conflicts with a restriction.
type DietaryViolation struct {
	Type        RestrictionType `json:"type"`
	Restriction string          `json:"restriction"`
	Severity    Severity        `json:"severity"`
	Reason      string          `json:"reason"`
	Ingredients []string        `json:"ingredients"`
}

// ProductAlternative is a similar product suggested in place of the scanned one.
type ProductAlternative struct {
	UPC             string      `json:"upc"`
	Name            string      `json:"name"`
	SimilarityScore float64     `json:"similarityScore"`
	SafetyLevel     SafetyLevel `json:"safetyLevel"`
	Reason          string      `json:"reason"`
}

// DietaryAnalysisResult is the verdict for one product and one profile.
// A result is never mutated after construction.
type DietaryAnalysisResult struct {
	SafetyLevel  SafetyLevel          `json:"safetyLevel"`
	Violations   []DietaryViolation   `json:"violations"`
	Confidence   float64              `json:"confidence"`
	Explanation  string               `json:"explanation"`
	Alternatives []ProductAlternative `json:"alternatives,omitempty"`
	Source       AnalysisSource       `json:"source"`
}

// HasHighSeverityViolation reports whether any violation is graded high.
func (r *DietaryAnalysisResult) HasHighSeverityViolation() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// GuidelineRef is a guideline selected for a context, keyed by the restriction it serves.
type GuidelineRef struct {
	Key            string   `json:"key"`
	Category       string   `json:"category"`
	Checklist      []string `json:"checklist"`
	Certifications []string `json:"certifications,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

// ContextMetadata describes how a RAGContext was assembled.
type ContextMetadata struct {
	DataCompleteness     float64   `json:"dataCompleteness"`
	SimilarityThreshold  float64   `json:"similarityThreshold"`
	SimilarProductsFound int       `json:"similarProductsFound"`
	BuiltAt              time.Time `json:"builtAt"`
}

// RAGContext is the per-(product, profile) bundle handed to the compliance analyzer.
type RAGContext struct {
	Product         *Product
	Profile         *UserProfile
	Restrictions    []DietaryRestriction
	SimilarProducts []SimilarProduct
	Guidelines      []GuidelineRef
	Metadata        ContextMetadata
}

// MemberAnalysis is one family member's verdict.
type MemberAnalysis struct {
	ProfileID   string                `json:"profileId"`
	ProfileName string                `json:"profileName"`
	Analysis    DietaryAnalysisResult `json:"analysis"`
}

// HouseholdAnalysis bundles the primary verdict with the family members' verdicts.
type HouseholdAnalysis struct {
	Primary DietaryAnalysisResult `json:"primary"`
	Members []MemberAnalysis      `json:"members"`
}

// ScanRequest is the single operation exposed to callers.
type ScanRequest struct {
	UPC            string        `json:"upc" binding:"required"`
	UserProfile    *UserProfile  `json:"userProfile" binding:"required"`
	FamilyProfiles []UserProfile `json:"familyProfiles,omitempty"`
}

// ScanResponse is returned for every successful scan, cached or not.
type ScanResponse struct {
	Product        *Product              `json:"product"`
	Analysis       DietaryAnalysisResult `json:"analysis"`
	FamilyAnalysis []MemberAnalysis      `json:"familyAnalysis,omitempty"`
	ResponseTime   time.Duration         `json:"-"`
	ResponseTimeMs int64                 `json:"responseTimeMs"`
	CacheHit       bool                  `json:"cacheHit"`
}
