package guideline

import "github.com/smarties/backend/internal/domain"

// NewDefaultTable returns the built-in guideline set.
func NewDefaultTable() *Table {
	return NewTable(defaultGuidelines, defaultAliases)
}

var defaultAliases = map[string]string{
	"peanut":           "peanuts",
	"groundnut":        "peanuts",
	"tree nut":         "tree_nuts",
	"nuts":             "tree_nuts",
	"dairy":            "milk",
	"egg":              "eggs",
	"gluten":           "celiac",
	"gluten free":      "celiac",
	"coeliac":          "celiac",
	"soya":             "soy",
	"sesame seed":      "sesame",
	"crustacean":       "shellfish",
	"lactose":          "lactose_intolerance",
	"diabetic":         "diabetes",
	"low sodium":       "hypertension",
	"kosher food":      "kosher",
	"hindu vegetarian": "hindu",
	"ketogenic":        "keto",
}

var defaultGuidelines = []Guideline{
	{
		Key:      "peanuts",
		Type:     domain.RestrictionAllergy,
		Category: "FDA major food allergen",
		Checklist: []string{
			"Check the allergen statement for peanuts or groundnuts",
			"Peanut oil, arachis oil and peanut flour count as peanut",
			"Treat 'may contain peanuts' and shared-facility statements as cross-contamination risk",
		},
		Keywords: []string{"peanut", "groundnut", "arachis"},
	},
	{
		Key:      "tree_nuts",
		Type:     domain.RestrictionAllergy,
		Category: "FDA major food allergen",
		Checklist: []string{
			"Check for almonds, cashews, walnuts, pecans, hazelnuts, pistachios, macadamias and brazil nuts",
			"Nut butters, marzipan, praline and nougat usually contain tree nuts",
			"Coconut is labeled as a tree nut in the US but rarely cross-reacts",
		},
		Keywords: []string{"almond", "cashew", "walnut", "pecan", "hazelnut", "pistachio", "macadamia", "brazil nut", "marzipan", "praline"},
	},
	{
		Key:      "milk",
		Type:     domain.RestrictionAllergy,
		Category: "FDA major food allergen",
		Checklist: []string{
			"Check for milk, butter, cream, cheese, yogurt and ghee",
			"Whey, casein and caseinates are milk proteins",
			"'Non-dairy' products may still contain casein",
		},
		Keywords: []string{"milk", "whey", "casein", "caseinate", "butter", "cream", "cheese", "yogurt", "ghee"},
	},
	{
		Key:      "eggs",
		Type:     domain.RestrictionAllergy,
		Category: "FDA major food allergen",
		Checklist: []string{
			"Check for egg, egg white, egg yolk and powdered egg",
			"Albumin, lysozyme and mayonnaise are egg-derived",
		},
		Keywords: []string{"egg", "albumin", "lysozyme", "mayonnaise", "meringue"},
	},
	{
		Key:      "wheat",
		Type:     domain.RestrictionAllergy,
		Category: "FDA major food allergen",
		Checklist: []string{
			"Check for wheat, flour, semolina, durum and spelt",
			"Modified food starch may be wheat-derived unless the source is stated",
		},
		Keywords: []string{"wheat", "flour", "semolina", "durum", "spelt", "couscous"},
	},
	{
		Key:      "soy",
		Type:     domain.RestrictionAllergy,
		Category: "FDA major food allergen",
		Checklist: []string{
			"Check for soy, soya, soybean, tofu, edamame and miso",
			"Soy lecithin and soy protein isolate are soy-derived",
		},
		Keywords: []string{"soy", "soya", "soybean", "tofu", "edamame", "miso", "soy lecithin"},
	},
	{
		Key:      "fish",
		Type:     domain.RestrictionAllergy,
		Category: "FDA major food allergen",
		Checklist: []string{
			"Check for named fish species and fish sauce",
			"Worcestershire sauce and caesar dressing often contain anchovy",
		},
		Keywords: []string{"fish", "anchovy", "salmon", "tuna", "cod", "tilapia", "fish sauce"},
	},
	{
		Key:      "shellfish",
		Type:     domain.RestrictionAllergy,
		Category: "FDA major food allergen",
		Checklist: []string{
			"Check for shrimp, prawn, crab, lobster and crayfish",
			"Mollusks (clams, mussels, oysters, scallops) are labeled separately in some regions",
		},
		Keywords: []string{"shrimp", "prawn", "crab", "lobster", "crayfish", "shellfish", "mussel", "oyster", "scallop"},
	},
	{
		Key:      "sesame",
		Type:     domain.RestrictionAllergy,
		Category: "FDA major food allergen",
		Checklist: []string{
			"Check for sesame seeds, sesame oil and tahini",
			"Sesame has been a labeled major allergen in the US since 2023",
		},
		Keywords: []string{"sesame", "tahini", "halva"},
	},
	{
		Key:      "halal",
		Type:     domain.RestrictionReligious,
		Category: "Islamic dietary law",
		Checklist: []string{
			"No pork or pork derivatives (lard, bacon, ham)",
			"No alcohol as an ingredient, including flavor carriers",
			"Gelatin, enzymes and emulsifiers must come from halal sources",
			"Meat must come from animals slaughtered according to halal rules",
		},
		Certifications: []string{"Halal", "IFANCA Halal", "HMC", "JAKIM"},
		Keywords:       []string{"pork", "lard", "bacon", "ham", "gelatin", "alcohol", "wine", "beer", "rum", "carmine"},
	},
	{
		Key:      "kosher",
		Type:     domain.RestrictionReligious,
		Category: "Jewish dietary law",
		Checklist: []string{
			"No pork or shellfish",
			"Meat and dairy must not be combined",
			"Look for a recognized hechsher on the package",
		},
		Certifications: []string{"Kosher", "OU", "OK", "Star-K", "Kof-K"},
		Keywords:       []string{"pork", "lard", "bacon", "ham", "shrimp", "crab", "lobster", "shellfish"},
	},
	{
		Key:      "hindu",
		Type:     domain.RestrictionReligious,
		Category: "Hindu dietary practice",
		Checklist: []string{
			"No beef or veal",
			"Gelatin and animal rennet are usually avoided",
		},
		Certifications: []string{"Vegetarian"},
		Keywords:       []string{"beef", "veal", "gelatin", "rennet"},
	},
	{
		Key:      "diabetes",
		Type:     domain.RestrictionMedical,
		Category: "Glycemic control",
		Checklist: []string{
			"Check added sugars and syrups near the top of the ingredient list",
			"Refined starches raise blood glucose quickly",
			"Consult nutrition facts for total carbohydrates per serving",
		},
		Keywords: []string{"sugar", "glucose syrup", "corn syrup", "dextrose", "maltodextrin", "fructose"},
	},
	{
		Key:      "celiac",
		Type:     domain.RestrictionMedical,
		Category: "Gluten-free diet",
		Checklist: []string{
			"No wheat, barley, rye, malt or spelt",
			"Oats are only safe when certified gluten-free",
			"Shared-facility statements are a real risk for celiac disease",
		},
		Certifications: []string{"Certified Gluten-Free", "GFCO", "Gluten Free"},
		Keywords:       []string{"wheat", "barley", "rye", "malt", "spelt", "gluten", "semolina"},
	},
	{
		Key:      "hypertension",
		Type:     domain.RestrictionMedical,
		Category: "Sodium restriction",
		Checklist: []string{
			"Check salt and sodium compounds (monosodium glutamate, sodium benzoate)",
			"Consult nutrition facts for sodium per serving",
		},
		Keywords: []string{"salt", "sodium", "monosodium glutamate"},
	},
	{
		Key:      "lactose_intolerance",
		Type:     domain.RestrictionMedical,
		Category: "Lactose restriction",
		Checklist: []string{
			"Check for milk, cream, whey and milk solids",
			"Aged cheeses and lactose-free labeled products are usually tolerated",
		},
		Certifications: []string{"Lactose Free"},
		Keywords:       []string{"milk", "lactose", "whey", "cream", "milk solids"},
	},
	{
		Key:      "vegan",
		Type:     domain.RestrictionLifestyle,
		Category: "Plant-based diet",
		Checklist: []string{
			"No meat, fish, dairy, eggs or honey",
			"Check for hidden animal derivatives: gelatin, carmine, casein, whey, shellac",
			"Prefer certified vegan labels over ingredient inference",
		},
		Certifications: []string{"Certified Vegan", "Vegan", "Vegan Society"},
		Keywords:       []string{"milk", "egg", "honey", "gelatin", "whey", "casein", "butter", "cream", "cheese", "carmine", "beef", "pork", "chicken", "fish", "lard", "shellac"},
	},
	{
		Key:      "vegetarian",
		Type:     domain.RestrictionLifestyle,
		Category: "Vegetarian diet",
		Checklist: []string{
			"No meat, poultry or fish",
			"Gelatin, animal rennet and carmine are not vegetarian",
		},
		Certifications: []string{"Vegetarian", "Certified Vegan", "Vegan"},
		Keywords:       []string{"beef", "pork", "chicken", "fish", "gelatin", "lard", "rennet", "carmine", "anchovy"},
	},
	{
		Key:      "keto",
		Type:     domain.RestrictionLifestyle,
		Category: "Low-carbohydrate diet",
		Checklist: []string{
			"Avoid sugars, grains and starches",
			"Consult nutrition facts for net carbohydrates",
		},
		Keywords: []string{"sugar", "flour", "rice", "potato", "corn syrup", "maltodextrin"},
	},
	{
		Key:      "paleo",
		Type:     domain.RestrictionLifestyle,
		Category: "Paleolithic diet",
		Checklist: []string{
			"No grains, legumes, dairy or refined sugar",
		},
		Keywords: []string{"wheat", "rice", "soy", "peanut", "milk", "sugar", "corn"},
	},
}
