package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentKey(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		assert.Equal(t,
			ContentKey(KindIngredients, "Wheat Flour, Sugar"),
			ContentKey(KindIngredients, "  wheat flour, sugar \n"),
		)
	})

	t.Run("kind discriminates identical text", func(t *testing.T) {
		assert.NotEqual(t,
			ContentKey(KindIngredients, "milk"),
			ContentKey(KindAllergens, "milk"),
		)
		assert.NotEqual(t,
			ContentKey(KindProductName, "milk"),
			ContentKey(KindAllergens, "milk"),
		)
	})

	t.Run("different text differs", func(t *testing.T) {
		assert.NotEqual(t, ContentKey(KindIngredients, "milk"), ContentKey(KindIngredients, "eggs"))
	})

	t.Run("prefixed with kind", func(t *testing.T) {
		assert.Contains(t, ContentKey(KindResponse, "x"), "response:")
	})
}

func TestExactKey(t *testing.T) {
	assert.NotEqual(t, ExactKey(KindResponse, "Name: Milk"), ExactKey(KindResponse, "Name: milk"))
	assert.NotEqual(t, ExactKey(KindResponse, "milk"), ExactKey(KindResponse, " milk"))
	assert.Equal(t, ContentKey(KindIngredients, " Milk "), ExactKey(KindIngredients, "milk"))
}
