package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarties/backend/internal/domain"
	"github.com/smarties/backend/internal/guideline"
)

func newTestScreen() *EvidenceScreen {
	return NewEvidenceScreen(guideline.NewDefaultTable(), NewIngredientPreprocessor(nil), ScreenConfig{})
}

func TestNewEvidenceScreen_Defaults(t *testing.T) {
	s := NewEvidenceScreen(nil, nil, ScreenConfig{})
	assert.Equal(t, 1, s.fuzzyEditDistance)
	assert.Equal(t, 5, s.minFuzzyLength)
	assert.NotNil(t, s.preprocessor)
}

func TestEvidenceScreen_Screen(t *testing.T) {
	s := newTestScreen()
	peanutAllergy := domain.DietaryRestriction{Type: domain.RestrictionAllergy, Name: "peanuts", Severity: domain.SeverityHigh}

	t.Run("declared allergen tag with language prefix", func(t *testing.T) {
		product := &domain.Product{UPC: "1", Allergens: []string{"en:peanuts"}}
		report := s.Screen(product, []domain.DietaryRestriction{peanutAllergy})

		require.Len(t, report.Hits, 1)
		assert.Equal(t, EvidenceAllergen, report.Hits[0].Source)
		assert.Equal(t, "peanuts", report.Hits[0].Evidence)
	})

	t.Run("ingredient keyword through alias and plural", func(t *testing.T) {
		product := &domain.Product{UPC: "1", Ingredients: []string{"Roasted Peanuts", "Salt"}}
		r := domain.DietaryRestriction{Type: domain.RestrictionAllergy, Name: "Peanut", Severity: domain.SeverityHigh}
		report := s.Screen(product, []domain.DietaryRestriction{r})

		require.Len(t, report.Hits, 1)
		assert.Equal(t, EvidenceIngredient, report.Hits[0].Source)
		assert.Equal(t, "roasted peanuts", report.Hits[0].Evidence)
	})

	t.Run("trace phrasing counts as trace only", func(t *testing.T) {
		product := &domain.Product{UPC: "1", Ingredients: []string{"oats", "may contain peanuts"}}
		report := s.Screen(product, []domain.DietaryRestriction{peanutAllergy})

		require.Len(t, report.Hits, 1)
		assert.Equal(t, EvidenceTrace, report.Hits[0].Source)
		assert.Empty(t, directHits(report.Hits))
	})

	t.Run("trace tags", func(t *testing.T) {
		product := &domain.Product{UPC: "1", Traces: []string{"en:tree-nuts"}}
		r := domain.DietaryRestriction{Type: domain.RestrictionAllergy, Name: "tree nuts", Severity: domain.SeverityMedium}
		report := s.Screen(product, []domain.DietaryRestriction{r})

		require.Len(t, report.Hits, 1)
		assert.Equal(t, EvidenceTrace, report.Hits[0].Source)
	})

	t.Run("medical restriction uses guideline keywords", func(t *testing.T) {
		product := &domain.Product{UPC: "1", Ingredients: []string{"whole milk", "sugar"}}
		r := domain.DietaryRestriction{Type: domain.RestrictionMedical, Name: "lactose intolerance", Severity: domain.SeverityMedium}
		report := s.Screen(product, []domain.DietaryRestriction{r})

		require.NotEmpty(t, report.Hits)
		assert.Equal(t, "milk", report.Hits[0].Term)
	})

	t.Run("certification outranks ingredient inference for religious rules", func(t *testing.T) {
		product := &domain.Product{
			UPC:            "1",
			Ingredients:    []string{"beef gelatin"},
			Certifications: []string{"Halal"},
		}
		r := domain.DietaryRestriction{Type: domain.RestrictionReligious, Name: "halal", Severity: domain.SeverityHigh}

		assert.True(t, s.Screen(product, []domain.DietaryRestriction{r}).Clean())

		product.Certifications = nil
		assert.False(t, s.Screen(product, []domain.DietaryRestriction{r}).Clean())
	})

	t.Run("short words never match fuzzily", func(t *testing.T) {
		product := &domain.Product{UPC: "1", Ingredients: []string{"silk protein"}}
		r := domain.DietaryRestriction{Type: domain.RestrictionAllergy, Name: "milk", Severity: domain.SeverityHigh}
		assert.True(t, s.Screen(product, []domain.DietaryRestriction{r}).Clean())
	})

	t.Run("misspelling on long words matches", func(t *testing.T) {
		product := &domain.Product{UPC: "1", Ingredients: []string{"sesme seeds"}}
		r := domain.DietaryRestriction{Type: domain.RestrictionAllergy, Name: "sesame", Severity: domain.SeverityHigh}
		assert.False(t, s.Screen(product, []domain.DietaryRestriction{r}).Clean())
	})

	t.Run("restriction without guideline screens by its own name", func(t *testing.T) {
		product := &domain.Product{UPC: "1", Ingredients: []string{"strawberries", "sugar"}}
		r := domain.DietaryRestriction{Type: domain.RestrictionAllergy, Name: "strawberry", Severity: domain.SeverityHigh}
		report := s.Screen(product, []domain.DietaryRestriction{r})
		require.Len(t, report.HitsFor(r), 1)
	})

	t.Run("clean product", func(t *testing.T) {
		product := &domain.Product{UPC: "1", Ingredients: []string{"water", "sugar"}, Allergens: []string{}}
		assert.True(t, s.Screen(product, []domain.DietaryRestriction{peanutAllergy}).Clean())
	})

	t.Run("nil product or no restrictions", func(t *testing.T) {
		assert.True(t, s.Screen(nil, []domain.DietaryRestriction{peanutAllergy}).Clean())
		assert.True(t, s.Screen(&domain.Product{Allergens: []string{"peanuts"}}, nil).Clean())
	})
}

func TestNormalizeTag(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"en:peanuts", "peanuts"},
		{"fr:lait", "lait"},
		{"en:tree-nuts", "tree nuts"},
		{"  Milk ", "milk"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := normalizeTag(tc.input); got != tc.want {
				t.Errorf("normalizeTag(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	t.Run("lowercases and removes punctuation", func(t *testing.T) {
		tokens := tokenize("Milk, WHEY (Protein)")
		assert.Equal(t, []string{"milk", "whey", "protein"}, tokens)
	})

	t.Run("filters stop words and numbers", func(t *testing.T) {
		tokens := tokenize("contains 2 of the peanuts")
		assert.Equal(t, []string{"peanuts"}, tokens)
	})

	t.Run("returns empty slice for empty string", func(t *testing.T) {
		assert.Empty(t, tokenize(""))
	})
}

func TestLevenshteinDistance(t *testing.T) {
	testCases := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"peanut", "peanut", 0},
		{"sesame", "sesme", 1},
		{"kitten", "sitting", 3},
	}

	for _, tc := range testCases {
		t.Run(tc.s1+"_"+tc.s2, func(t *testing.T) {
			if got := levenshteinDistance(tc.s1, tc.s2); got != tc.want {
				t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tc.s1, tc.s2, got, tc.want)
			}
		})
	}
}

func TestFuzzyTokenMatch(t *testing.T) {
	assert.True(t, fuzzyTokenMatch("almond", "almonds", 1, 5))
	assert.False(t, fuzzyTokenMatch("milk", "silk", 1, 5))
	assert.False(t, fuzzyTokenMatch("cashew", "cashewnut", 1, 5))
	assert.True(t, fuzzyTokenMatch("soy", "soy", 1, 5))
}

func TestSingular(t *testing.T) {
	testCases := map[string]string{
		"strawberries": "strawberry",
		"peanuts":      "peanut",
		"glass":        "glass",
		"egg":          "egg",
		"oats":         "oat",
	}
	for input, want := range testCases {
		if got := singular(input); got != want {
			t.Errorf("singular(%q) = %q, want %q", input, got, want)
		}
	}
}
