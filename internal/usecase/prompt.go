package usecase

import (
	"fmt"
	"strings"

	"github.com/smarties/backend/internal/domain"
)

const (
	// maxSimilarIngredients bounds how much of each similar product reaches the prompt.
	maxSimilarIngredients = 8
	maxPromptIngredients  = 60
)

const systemPrompt = `You are a food-safety analyst checking grocery products against dietary restrictions.
Rules:
1. Choose exactly one safetyLevel: "safe", "caution" or "danger".
2. List every violation with its restriction type, restriction name, severity (low, medium, high) and the ingredients that cause it.
3. Prefer certification evidence over inference from ingredient text.
4. Treat "may contain", "traces of" and shared-facility statements as cross-contamination risk.
5. A product with any high severity violation is never "safe". When the data is incomplete, prefer "caution".
6. Respond with a single JSON object and nothing else:
{"safetyLevel":"safe|caution|danger","violations":[{"type":"allergy|religious|medical|lifestyle","restriction":"","severity":"low|medium|high","reason":"","ingredients":[""]}],"explanation":"","alternatives":[{"upc":"","reason":""}]}`

// PromptBuilder serializes a RAGContext and local screening signals into a prompt.
type PromptBuilder struct {
	temperature  float32
	maxTokens    int
	preprocessor *IngredientPreprocessor
}

// NewPromptBuilder creates a prompt builder with the sampling settings used for every request.
func NewPromptBuilder(temperature float32, maxTokens int, preprocessor *IngredientPreprocessor) *PromptBuilder {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	if preprocessor == nil {
		preprocessor = NewIngredientPreprocessor(nil)
	}
	return &PromptBuilder{temperature: temperature, maxTokens: maxTokens, preprocessor: preprocessor}
}

// Build renders the prompt for one context.
func (b *PromptBuilder) Build(rc *domain.RAGContext, screen ScreenReport) domain.Prompt {
	var sb strings.Builder

	p := rc.Product
	sb.WriteString("PRODUCT\n")
	fmt.Fprintf(&sb, "Name: %s\n", p.Name)
	fmt.Fprintf(&sb, "UPC: %s\n", p.UPC)
	if p.Brand != "" {
		fmt.Fprintf(&sb, "Brand: %s\n", p.Brand)
	}
	if p.Category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", p.Category)
	}
	fmt.Fprintf(&sb, "Ingredients: %s\n", listOrUnknown(truncateList(p.Ingredients, maxPromptIngredients)))
	fmt.Fprintf(&sb, "Allergen tags: %s\n", listOrUnknown(normalizeTags(p.Allergens)))
	fmt.Fprintf(&sb, "Trace tags: %s\n", listOrNone(normalizeTags(p.Traces)))
	fmt.Fprintf(&sb, "Certifications: %s\n", listOrNone(p.Certifications))
	if stmts := b.preprocessor.ExtractTraceStatements(strings.Join(p.Ingredients, ", ")); len(stmts) > 0 {
		fmt.Fprintf(&sb, "Cross-contamination statements: %s\n", strings.Join(stmts, "; "))
	}
	fmt.Fprintf(&sb, "Data completeness: %.2f\n", rc.Metadata.DataCompleteness)

	sb.WriteString("\nRESTRICTIONS\n")
	if len(rc.Restrictions) == 0 {
		sb.WriteString("- none\n")
	}
	for _, r := range rc.Restrictions {
		fmt.Fprintf(&sb, "- type=%s name=%s severity=%s", r.Type, r.Name, r.Severity)
		if r.Notes != "" {
			fmt.Fprintf(&sb, " notes=%q", r.Notes)
		}
		sb.WriteString("\n")
	}

	if len(rc.Guidelines) > 0 {
		sb.WriteString("\nGUIDELINES\n")
		for _, g := range rc.Guidelines {
			fmt.Fprintf(&sb, "[%s] %s\n", g.Key, g.Category)
			for _, item := range g.Checklist {
				fmt.Fprintf(&sb, "  - %s\n", item)
			}
			if len(g.Certifications) > 0 {
				fmt.Fprintf(&sb, "  Accepted certifications: %s\n", strings.Join(g.Certifications, ", "))
			}
		}
	}

	if !screen.Clean() {
		sb.WriteString("\nPRE-SCREEN SIGNALS\n")
		for _, h := range screen.Hits {
			fmt.Fprintf(&sb, "- %s: %s evidence %q (matched %q)\n", h.Restriction.Name, h.Source, h.Evidence, h.Term)
		}
	}

	if len(rc.SimilarProducts) > 0 {
		sb.WriteString("\nSIMILAR PRODUCTS\n")
		for _, sp := range rc.SimilarProducts {
			fmt.Fprintf(&sb, "- upc=%s name=%s similarity=%.2f ingredients=%s\n",
				sp.Product.UPC, sp.Product.Name, sp.Similarity,
				listOrUnknown(truncateList(sp.Product.Ingredients, maxSimilarIngredients)))
		}
	}

	return domain.Prompt{
		System:      systemPrompt,
		User:        sb.String(),
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
	}
}

func truncateList(items []string, limit int) []string {
	if len(items) <= limit {
		return items
	}
	out := make([]string, limit, limit+1)
	copy(out, items[:limit])
	return append(out, fmt.Sprintf("... (%d more)", len(items)-limit))
}

func listOrUnknown(items []string) string {
	if len(items) == 0 {
		return "unknown"
	}
	return strings.Join(items, ", ")
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
