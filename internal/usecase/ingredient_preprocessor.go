package usecase

import (
	"regexp"
	"strings"

	"github.com/smarties/backend/internal/platform/logger"
)

// IngredientPreprocessor cleans raw ingredient text before it is embedded,
// screened or shown to the reasoning service.
type IngredientPreprocessor struct {
	log *logger.Logger
}

// Compiled regex patterns for ingredient preprocessing
var (
	// Matches label prefixes like "Ingredients:", "INGREDIENTS -", "Contains:"
	labelPrefixPattern = regexp.MustCompile(`(?i)^\s*(ingredients?|contains|ingr\.?)\s*[:\-]\s*`)

	// Matches percentages like "(2%)", "12.5 %"
	percentagePattern = regexp.MustCompile(`\(?\s*\d+(\.\d+)?\s*%\s*\)?`)

	// Matches cross-contamination phrasing through the end of its sentence
	traceStatementPattern = regexp.MustCompile(`(?i)\b(may\s+contain|may\s+also\s+contain|contains\s+traces?\s+of|traces?\s+of|produced\s+in\s+a\s+facility\s+(that\s+also\s+(processes|handles)|with)|processed\s+in\s+a\s+facility\s+(that\s+also\s+(processes|handles)|with)|manufactured\s+(in\s+a\s+facility|on\s+(shared\s+)?equipment)\s+(that\s+also\s+(processes|handles)|with)|made\s+on\s+shared\s+equipment\s+with)\b[^.;]*`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// NewIngredientPreprocessor creates a new ingredient preprocessor
func NewIngredientPreprocessor(log *logger.Logger) *IngredientPreprocessor {
	if log == nil {
		log = logger.NewNop()
	}
	return &IngredientPreprocessor{log: log.With("service", "IngredientPreprocessor")}
}

// PreprocessIngredients normalizes ingredient text: lowercase, label prefixes
// and percentages removed, whitespace collapsed.
func (p *IngredientPreprocessor) PreprocessIngredients(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	// Step 1: Drop the label prefix
	cleaned := labelPrefixPattern.ReplaceAllString(text, "")

	// Step 2: Percentages carry no dietary signal
	cleaned = percentagePattern.ReplaceAllString(cleaned, " ")

	// Step 3: Lowercase and normalize whitespace
	cleaned = strings.ToLower(cleaned)
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(cleaned), "."))

	p.log.Debug("preprocessed ingredients", "input_len", len(text), "output_len", len(cleaned))
	return cleaned
}

// SplitIngredients splits an ingredient statement on top-level commas and
// semicolons. Sub-ingredients in parentheses stay attached to their parent.
func (p *IngredientPreprocessor) SplitIngredients(text string) []string {
	cleaned := p.PreprocessIngredients(text)
	if cleaned == "" {
		return nil
	}

	var (
		parts []string
		depth int
		start int
	)
	flush := func(end int) {
		part := strings.TrimSpace(cleaned[start:end])
		part = strings.Trim(part, ".,; ")
		if part != "" {
			parts = append(parts, part)
		}
	}
	for i, r := range cleaned {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',', ';':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(cleaned))
	return parts
}

// ExtractTraceStatements returns the "may contain" and shared-facility phrases
// found in free text, lowercased and whitespace-normalized.
func (p *IngredientPreprocessor) ExtractTraceStatements(text string) []string {
	if text == "" {
		return nil
	}
	matches := traceStatementPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	statements := make([]string, 0, len(matches))
	for _, m := range matches {
		s := strings.ToLower(multiSpacePattern.ReplaceAllString(strings.TrimSpace(m), " "))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		statements = append(statements, s)
	}
	return statements
}
