// Package detect screens page text for advertising-policy violations.
// Two detectors feed the same Violation type: a deterministic phrase and
// link scan, and an LLM-backed semantic classifier.
package detect

import "strings"

// Type is a policy violation category.
type Type string

const (
	Adult      Type = "Adult"
	Gambling   Type = "Gambling"
	Scam       Type = "Scam"
	Fake       Type = "Fake"
	Harmful    Type = "Harmful"
	Hate       Type = "Hate"
	Copyright  Type = "Copyright"
	Misleading Type = "Misleading"
)

// Types lists every category in prompt order.
var Types = []Type{Adult, Gambling, Scam, Fake, Harmful, Hate, Copyright, Misleading}

// ParseType maps a category name to its Type, ignoring case and
// surrounding space.
func ParseType(s string) (Type, bool) {
	s = strings.TrimSpace(s)
	for _, t := range Types {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}

// Violation is one finding on a page.
type Violation struct {
	Type       Type    `json:"type"`
	Excerpt    string  `json:"excerpt"`
	Confidence float64 `json:"confidence"`
}

// Summaries reported when the semantic classifier did not produce one.
const (
	SummaryAPIKeyMissing      = "API key missing"
	SummarySafe               = "Safe content"
	SummaryAIError            = "AI error"
	SummaryViolationsDetected = "Policy violations detected"
)

// Analysis is the outcome of classifying one page.
type Analysis struct {
	Violations  []Violation `json:"violations"`
	Summary     string      `json:"summary"`
	Suggestions []string    `json:"suggestions"`
}

func emptyAnalysis(summary string) Analysis {
	return Analysis{Violations: []Violation{}, Summary: summary, Suggestions: []string{}}
}

// Merge appends deterministic findings to a semantic analysis. When the
// classifier skipped the page as safe but the deterministic scan found
// something, the summary is replaced so the two never contradict.
func Merge(semantic Analysis, clear []Violation) Analysis {
	out := Analysis{
		Violations:  make([]Violation, 0, len(semantic.Violations)+len(clear)),
		Summary:     semantic.Summary,
		Suggestions: semantic.Suggestions,
	}
	if out.Suggestions == nil {
		out.Suggestions = []string{}
	}
	out.Violations = append(out.Violations, semantic.Violations...)
	out.Violations = append(out.Violations, clear...)

	if len(clear) > 0 && semantic.Summary == SummarySafe {
		out.Summary = SummaryViolationsDetected
	}
	return out
}
