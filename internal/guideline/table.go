// Package guideline holds the read-only table of authoritative dietary guidance.
package guideline

import (
	"slices"
	"strings"

	"github.com/smarties/backend/internal/domain"
)

// Guideline is the guidance attached to one restriction.
type Guideline struct {
	Key            string
	Type           domain.RestrictionType
	Category       string
	Checklist      []string
	Certifications []string
	// Keywords are ingredient terms that indicate a conflict with the restriction.
	Keywords []string
}

// Ref converts the guideline into the shape carried by a RAGContext.
func (g Guideline) Ref() domain.GuidelineRef {
	return domain.GuidelineRef{
		Key:            g.Key,
		Category:       g.Category,
		Checklist:      slices.Clone(g.Checklist),
		Certifications: slices.Clone(g.Certifications),
		Keywords:       slices.Clone(g.Keywords),
	}
}

// Table maps restriction names to guidelines. It is built once and never mutated.
type Table struct {
	entries map[string]Guideline
	aliases map[string]string
}

// NewTable builds a table from entries and an alias map (alias -> entry key).
func NewTable(entries []Guideline, aliases map[string]string) *Table {
	t := &Table{
		entries: make(map[string]Guideline, len(entries)),
		aliases: make(map[string]string, len(aliases)),
	}
	for _, g := range entries {
		t.entries[normalizeKey(g.Key)] = g
	}
	for alias, key := range aliases {
		t.aliases[normalizeKey(alias)] = normalizeKey(key)
	}
	return t
}

// Lookup returns the guideline for a restriction, resolving aliases.
func (t *Table) Lookup(r domain.DietaryRestriction) (Guideline, bool) {
	if t == nil {
		return Guideline{}, false
	}
	key := normalizeKey(r.Name)
	if key == "" {
		return Guideline{}, false
	}
	if target, ok := t.aliases[key]; ok {
		key = target
	}
	g, ok := t.entries[key]
	return g, ok
}

// Len returns the number of guidelines in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return s
}
