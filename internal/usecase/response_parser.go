package usecase

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/smarties/backend/internal/domain"
)

// ParseStatus tags how far a reasoning-service reply could be interpreted.
type ParseStatus int

const (
	// ParseOK means the reply matched the expected shape.
	ParseOK ParseStatus = iota
	// ParseDegraded means a JSON object was found but did not fit the shape.
	ParseDegraded
	// ParseFailed means no JSON object could be recovered at all.
	ParseFailed
)

func (s ParseStatus) String() string {
	switch s {
	case ParseOK:
		return "ok"
	case ParseDegraded:
		return "degraded"
	default:
		return "failed"
	}
}

// codeFencePattern matches ```json ... ``` wrappers some models add around JSON.
var codeFencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// modelViolation and modelReply mirror the structured shape requested in the prompt.
type modelViolation struct {
	Type        string   `json:"type"`
	Restriction string   `json:"restriction"`
	Severity    string   `json:"severity"`
	Reason      string   `json:"reason"`
	Ingredients []string `json:"ingredients"`
}

type modelAlternative struct {
	UPC    string `json:"upc"`
	Reason string `json:"reason"`
}

type modelReply struct {
	SafetyLevel  string             `json:"safetyLevel"`
	Violations   []modelViolation   `json:"violations"`
	Explanation  string             `json:"explanation"`
	Alternatives []modelAlternative `json:"alternatives"`
}

// ParsedAnalysis is the validated content of a reasoning-service reply.
type ParsedAnalysis struct {
	SafetyLevel       domain.SafetyLevel
	Violations        []domain.DietaryViolation
	Explanation       string
	AlternativeReason map[string]string // upc -> model supplied reason
}

// ParseAnalysis interprets raw reasoning-service text. It never panics on
// untrusted input; restrictions are used to fill in violation types the model left out.
func ParseAnalysis(raw string, restrictions []domain.DietaryRestriction) (ParsedAnalysis, ParseStatus) {
	payload, ok := extractJSONObject(raw)
	if !ok {
		return ParsedAnalysis{}, ParseFailed
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return ParsedAnalysis{}, ParseDegraded
	}

	level := domain.SafetyLevel(strings.ToLower(strings.TrimSpace(reply.SafetyLevel)))
	if !level.Valid() {
		return ParsedAnalysis{}, ParseDegraded
	}

	parsed := ParsedAnalysis{
		SafetyLevel: level,
		Violations:  make([]domain.DietaryViolation, 0, len(reply.Violations)),
		Explanation: strings.TrimSpace(reply.Explanation),
	}
	for _, v := range reply.Violations {
		name := strings.TrimSpace(v.Restriction)
		if name == "" {
			continue
		}
		parsed.Violations = append(parsed.Violations, domain.DietaryViolation{
			Type:        violationType(v.Type, name, restrictions),
			Restriction: name,
			Severity:    domain.ParseSeverity(v.Severity),
			Reason:      strings.TrimSpace(v.Reason),
			Ingredients: cleanList(v.Ingredients),
		})
	}
	for _, alt := range reply.Alternatives {
		upc := strings.TrimSpace(alt.UPC)
		if upc == "" || strings.TrimSpace(alt.Reason) == "" {
			continue
		}
		if parsed.AlternativeReason == nil {
			parsed.AlternativeReason = make(map[string]string)
		}
		parsed.AlternativeReason[upc] = strings.TrimSpace(alt.Reason)
	}
	return parsed, ParseOK
}

// ReplyUsable reports whether raw parses into a complete analysis. Replies that
// would degrade or fail are not worth replaying from a response cache.
func ReplyUsable(raw string) bool {
	_, status := ParseAnalysis(raw, nil)
	return status == ParseOK
}

// extractJSONObject strips code fences and surrounding prose and returns the
// outermost {...} span.
func extractJSONObject(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if m := codeFencePattern.FindStringSubmatch(text); len(m) == 2 {
		text = m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// violationType trusts a valid model-supplied type, then the matching profile
// restriction, then falls back to medical.
func violationType(raw, restriction string, restrictions []domain.DietaryRestriction) domain.RestrictionType {
	t := domain.RestrictionType(strings.ToLower(strings.TrimSpace(raw)))
	if t.Valid() {
		return t
	}
	name := strings.ToLower(restriction)
	for _, r := range restrictions {
		if r.NormalizedName() == name {
			return r.Type
		}
	}
	return domain.RestrictionMedical
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
