package openfoodfacts

import (
	"strings"

	off "github.com/openfoodfacts/openfoodfacts-go"

	"github.com/smarties/backend/internal/domain"
)

// certificationLabels maps label tags to the certification names guidelines recognize.
var certificationLabels = map[string]string{
	"halal":        "Halal",
	"kosher":       "Kosher",
	"vegan":        "Vegan",
	"vegetarian":   "Vegetarian",
	"gluten-free":  "Gluten Free",
	"no-gluten":    "Gluten Free",
	"no-lactose":   "Lactose Free",
	"organic":      "Organic",
	"eu-organic":   "Organic",
	"usda-organic": "Organic",
}

// MapToProduct converts an Open Food Facts record into a domain product.
func MapToProduct(upc string, p *off.Product, splitter IngredientSplitter) *domain.Product {
	product := &domain.Product{
		UPC:            upc,
		Name:           strings.TrimSpace(p.ProductName),
		Brand:          firstEntry(p.Brands),
		Ingredients:    extractIngredients(p, splitter),
		Allergens:      stripLanguagePrefixes(tagStrings(p.AllergensTags)),
		Traces:         stripLanguagePrefixes(p.TracesTags),
		Certifications: extractCertifications(p.LabelsTags),
		HasNutrition:   strings.TrimSpace(p.NutritionDataPer) != "",
	}
	if categories := stripLanguagePrefixes(p.CategoriesTags); len(categories) > 0 {
		product.Category = categories[0]
	}
	return product
}

// extractIngredients prefers the label text and falls back to ingredient tags.
func extractIngredients(p *off.Product, splitter IngredientSplitter) []string {
	if text := strings.TrimSpace(p.IngredientsText); text != "" {
		var parts []string
		if splitter != nil {
			parts = splitter.SplitIngredients(text)
		} else {
			parts = strings.Split(text, ",")
		}
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return stripLanguagePrefixes(p.IngredientsTags)
}

func extractCertifications(labels []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, label := range stripLanguagePrefixes(labels) {
		cert, ok := certificationLabels[strings.ReplaceAll(label, " ", "-")]
		if !ok || seen[cert] {
			continue
		}
		seen[cert] = true
		out = append(out, cert)
	}
	return out
}

// stripLanguagePrefixes turns tags like "en:peanuts" into "peanuts" and
// "en:sesame-seeds" into "sesame seeds".
func stripLanguagePrefixes(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if i := strings.Index(tag, ":"); i >= 0 && i <= 3 {
			tag = tag[i+1:]
		}
		tag = strings.TrimSpace(strings.ReplaceAll(tag, "-", " "))
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// tagStrings keeps the string elements of a loosely typed tag list.
func tagStrings(tags []interface{}) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if s, ok := tag.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func firstEntry(list string) string {
	first, _, _ := strings.Cut(list, ",")
	return strings.TrimSpace(first)
}
