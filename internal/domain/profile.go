package domain

import "strings"

// RestrictionType is the broad family a dietary restriction belongs to.
type RestrictionType string

const (
	RestrictionAllergy   RestrictionType = "allergy"
	RestrictionReligious RestrictionType = "religious"
	RestrictionMedical   RestrictionType = "medical"
	RestrictionLifestyle RestrictionType = "lifestyle"
)

// Valid reports whether t is one of the known restriction types.
func (t RestrictionType) Valid() bool {
	switch t {
	case RestrictionAllergy, RestrictionReligious, RestrictionMedical, RestrictionLifestyle:
		return true
	}
	return false
}

// Severity grades how serious a restriction or violation is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities so they can be compared; unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// ParseSeverity normalizes free-form severity text, defaulting to medium.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityHigh:
		return SeverityHigh
	case SeverityLow:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// DietaryRestriction is one rule a user must follow.
type DietaryRestriction struct {
	Type     RestrictionType `json:"type"`
	Name     string          `json:"name"`
	Severity Severity        `json:"severity"`
	Notes    string          `json:"notes,omitempty"`
}

// NormalizedName is the lowercase, trimmed restriction name used for matching and keys.
func (r DietaryRestriction) NormalizedName() string {
	return strings.ToLower(strings.TrimSpace(r.Name))
}

// UserProfile is a person whose restrictions a product is checked against.
type UserProfile struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Restrictions []DietaryRestriction `json:"restrictions"`
}

// UniqueRestrictions returns the profile's restrictions deduplicated by type and name.
// When duplicates disagree on severity the highest one wins; first-seen order is kept.
func (p *UserProfile) UniqueRestrictions() []DietaryRestriction {
	if p == nil || len(p.Restrictions) == 0 {
		return nil
	}

	index := make(map[string]int, len(p.Restrictions))
	out := make([]DietaryRestriction, 0, len(p.Restrictions))
	for _, r := range p.Restrictions {
		if r.NormalizedName() == "" {
			continue
		}
		key := string(r.Type) + "|" + r.NormalizedName()
		if i, ok := index[key]; ok {
			if r.Severity.Rank() > out[i].Severity.Rank() {
				out[i].Severity = r.Severity
			}
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}
