package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Kind separates identical text used in different semantic roles.
type Kind string

const (
	KindIngredients Kind = "ingredients"
	KindProductName Kind = "product_name"
	KindAllergens   Kind = "allergens"
	KindResponse    Kind = "response"
)

// ContentKey returns the content address for text of the given kind.
// Text is trimmed and lowercased before hashing.
func ContentKey(kind Kind, text string) string {
	return ExactKey(kind, strings.ToLower(strings.TrimSpace(text)))
}

// ExactKey returns the content address for text hashed as is.
func ExactKey(kind Kind, text string) string {
	sum := sha256.Sum256([]byte(string(kind) + "\x00" + text))
	return string(kind) + ":" + hex.EncodeToString(sum[:])
}
