package usecase

import (
	"regexp"
	"slices"
	"strings"

	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/guideline"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// EvidenceSource tells where in the product data a restriction was hit.
type EvidenceSource string

const (
	EvidenceAllergen   EvidenceSource = "allergen"   // declared allergen tag
	EvidenceTrace      EvidenceSource = "trace"      // "may contain" / shared facility
	EvidenceIngredient EvidenceSource = "ingredient" // keyword found in the ingredient list
)

// ScreenHit is one piece of local evidence that a product conflicts with a restriction.
type ScreenHit struct {
	Restriction domain.DietaryRestriction
	Source      EvidenceSource
	Term        string // the restriction keyword that matched
	Evidence    string // the product text it matched against
}

// ScreenReport is the evidence screen's output for one product and one profile.
type ScreenReport struct {
	Hits []ScreenHit
}

// Clean reports whether no restriction was hit.
func (r ScreenReport) Clean() bool {
	return len(r.Hits) == 0
}

// HitsFor returns the hits recorded against restriction r.
func (r ScreenReport) HitsFor(restriction domain.DietaryRestriction) []ScreenHit {
	var out []ScreenHit
	for _, h := range r.Hits {
		if sameRestriction(h.Restriction, restriction) {
			out = append(out, h)
		}
	}
	return out
}

// directHits returns allergen and ingredient hits, leaving out trace-only evidence.
func directHits(hits []ScreenHit) []ScreenHit {
	var out []ScreenHit
	for _, h := range hits {
		if h.Source != EvidenceTrace {
			out = append(out, h)
		}
	}
	return out
}

// ScreenConfig holds configuration for the evidence screen
type ScreenConfig struct {
	FuzzyEditDistance int
	MinFuzzyLength    int
}

// EvidenceScreen checks a product against restrictions using only local data.
// It never calls out and never fails; the result feeds the prompt, the safety
// floor and the screening of alternatives.
type EvidenceScreen struct {
	guidelines        *guideline.Table
	preprocessor      *IngredientPreprocessor
	fuzzyEditDistance int
	minFuzzyLength    int
}

// NewEvidenceScreen creates a new evidence screen backed by the guideline table
func NewEvidenceScreen(table *guideline.Table, preprocessor *IngredientPreprocessor, config ScreenConfig) *EvidenceScreen {
	fuzzyDist := config.FuzzyEditDistance
	if fuzzyDist <= 0 {
		fuzzyDist = 1 // Default edit distance of 1
	}
	minLen := config.MinFuzzyLength
	if minLen <= 0 {
		minLen = 5
	}
	if preprocessor == nil {
		preprocessor = NewIngredientPreprocessor(nil)
	}
	return &EvidenceScreen{
		guidelines:        table,
		preprocessor:      preprocessor,
		fuzzyEditDistance: fuzzyDist,
		minFuzzyLength:    minLen,
	}
}

// Screen checks product against every restriction and returns all hits,
// grouped by restriction in input order.
func (s *EvidenceScreen) Screen(product *domain.Product, restrictions []domain.DietaryRestriction) ScreenReport {
	if product == nil || len(restrictions) == 0 {
		return ScreenReport{}
	}

	allergens := normalizeTags(product.Allergens)
	traces := normalizeTags(product.Traces)

	// Trace phrasing inside an ingredient entry counts as cross-contamination, not as an ingredient.
	ingredients := make([]string, 0, len(product.Ingredients))
	for _, ing := range product.Ingredients {
		traces = append(traces, s.preprocessor.ExtractTraceStatements(ing)...)
		stripped := traceStatementPattern.ReplaceAllString(ing, " ")
		if cleaned := s.preprocessor.PreprocessIngredients(stripped); cleaned != "" {
			ingredients = append(ingredients, cleaned)
		}
	}

	var report ScreenReport
	for _, r := range restrictions {
		terms, certs := s.termsFor(r)
		if len(terms) == 0 {
			continue
		}

		for _, tag := range allergens {
			if term, ok := s.matchTerms(terms, tag); ok {
				report.Hits = append(report.Hits, ScreenHit{Restriction: r, Source: EvidenceAllergen, Term: term, Evidence: tag})
			}
		}

		// Certification evidence outranks inference from ingredient text for
		// religious and lifestyle rules. Declared allergens are never overridden.
		certified := r.Type != domain.RestrictionAllergy && hasCertification(product.Certifications, certs)
		if !certified {
			for _, ing := range ingredients {
				if term, ok := s.matchTerms(terms, ing); ok {
					report.Hits = append(report.Hits, ScreenHit{Restriction: r, Source: EvidenceIngredient, Term: term, Evidence: ing})
				}
			}
		}

		for _, tr := range traces {
			if term, ok := s.matchTerms(terms, tr); ok {
				report.Hits = append(report.Hits, ScreenHit{Restriction: r, Source: EvidenceTrace, Term: term, Evidence: tr})
			}
		}
	}
	return report
}

// termsFor returns the watch terms and recognized certifications for a restriction.
// The restriction's own name is always a term so unlisted restrictions still screen.
func (s *EvidenceScreen) termsFor(r domain.DietaryRestriction) ([]string, []string) {
	var terms []string
	if name := strings.ReplaceAll(r.NormalizedName(), "_", " "); name != "" {
		terms = append(terms, name)
	}
	g, ok := s.guidelines.Lookup(r)
	if !ok {
		return terms, nil
	}
	// Lifestyle and medical rule names ("vegan", "diabetes") are not ingredients.
	if r.Type == domain.RestrictionLifestyle || r.Type == domain.RestrictionMedical || r.Type == domain.RestrictionReligious {
		terms = terms[:0]
	}
	for _, kw := range g.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && !slices.Contains(terms, kw) {
			terms = append(terms, kw)
		}
	}
	return terms, g.Certifications
}

// matchTerms returns the first term found in text.
// Multi-word terms match as phrases; single words match tokens.
func (s *EvidenceScreen) matchTerms(terms []string, text string) (string, bool) {
	normalized := " " + strings.Join(strings.Fields(punctuationRegex.ReplaceAllString(strings.ToLower(text), " ")), " ") + " "
	tokens := tokenize(text)

	for _, term := range terms {
		if strings.Contains(term, " ") {
			if strings.Contains(normalized, " "+term+" ") || strings.Contains(normalized, " "+term+"s ") {
				return term, true
			}
			continue
		}
		for _, token := range tokens {
			if s.tokenMatches(term, token) {
				return term, true
			}
		}
	}
	return "", false
}

// tokenMatches compares a restriction term to a product token, allowing plurals
// and small misspellings on longer words.
func (s *EvidenceScreen) tokenMatches(term, token string) bool {
	if term == token || singular(term) == singular(token) || token == term+"es" {
		return true
	}
	return fuzzyTokenMatch(term, token, s.fuzzyEditDistance, s.minFuzzyLength)
}

// singular strips common English plural endings ("berries" -> "berry", "nuts" -> "nut").
func singular(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return strings.TrimSuffix(word, "ies") + "y"
	case len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return strings.TrimSuffix(word, "s")
	}
	return word
}

// sameRestriction compares restrictions by identity (type and normalized name).
func sameRestriction(a, b domain.DietaryRestriction) bool {
	return a.Type == b.Type && a.NormalizedName() == b.NormalizedName()
}

func hasCertification(productCerts, recognized []string) bool {
	for _, pc := range productCerts {
		for _, rc := range recognized {
			if strings.EqualFold(strings.TrimSpace(pc), rc) {
				return true
			}
		}
	}
	return false
}

// normalizeTag strips the language prefix from taxonomy tags ("en:peanuts" -> "peanuts")
// and turns hyphens into spaces.
func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.Index(tag, ":"); i >= 0 && i <= 3 {
		tag = tag[i+1:]
	}
	return strings.TrimSpace(strings.ReplaceAll(tag, "-", " "))
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if n := normalizeTag(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// stopWords are dropped by tokenize; they never carry dietary signal.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	"it": true, "as": true, "be": true, "contains": true, "less": true,
	"than": true, "may": true, "made": true, "added": true,
}

// tokenize splits a string into normalized lowercase tokens.
// Removes punctuation, stop words and pure numeric tokens.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 {
			continue
		}
		if stopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold.
// Short tokens never match fuzzily; "milk" and "silk" are different things.
func fuzzyTokenMatch(token1, token2 string, threshold, minLength int) bool {
	if token1 == token2 {
		return true
	}
	if len(token1) < minLength || len(token2) < minLength {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
