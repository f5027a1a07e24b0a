package domain

// Product is a scanned grocery product as returned by the lookup collaborator.
// It is treated as read-only for the duration of one analysis.
type Product struct {
	UPC            string    `json:"upc"`
	Name           string    `json:"name"`
	Brand          string    `json:"brand,omitempty"`
	Category       string    `json:"category,omitempty"`
	Ingredients    []string  `json:"ingredients"`
	Allergens      []string  `json:"allergens"`      // declared allergen tags, e.g. "peanuts"
	Traces         []string  `json:"traces"`         // "may contain" / shared facility tags
	Certifications []string  `json:"certifications"` // e.g. "Halal", "Certified Vegan"
	HasNutrition   bool      `json:"hasNutrition"`
	Embedding      []float32 `json:"-"`
}

// HasIngredients reports whether the product carries a usable ingredient list.
func (p *Product) HasIngredients() bool {
	for _, ing := range p.Ingredients {
		if ing != "" {
			return true
		}
	}
	return false
}

// SimilarProduct is a product returned by the similarity collaborator with its cosine score.
type SimilarProduct struct {
	Product    Product `json:"product"`
	Similarity float64 `json:"similarity"`
}

// SimilarityQuery holds the filters passed to the similarity collaborator.
type SimilarityQuery struct {
	Limit      int
	Threshold  float64
	ExcludeUPC string
	Category   string
}
