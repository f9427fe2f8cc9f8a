package scan

import (
	"fmt"
	"math"
	"strings"
)

// ScoreInput carries the aggregated counts the score depends on.
type ScoreInput struct {
	TotalViolations int
	MissingPages    int
	PostCount       int
	HasMetaTags     bool
	HasGoodHeaders  bool
}

const (
	lowContentPosts     = 40
	veryLowContentPosts = 20
	maxViolationPenalty = 50
	maxMissingPenalty   = 10
	suggestionsCap      = 15
	goodHeaderMinCount  = 3
)

// Score computes the advisory compliance score in [0, 100]. The two
// content-volume penalties stack, so a site under 20 posts loses 15.
func Score(in ScoreInput) int {
	score := 100.0

	score -= float64(min(maxViolationPenalty, 3*max(0, in.TotalViolations)))
	score -= float64(min(maxMissingPenalty, 2*max(0, in.MissingPages)))
	if in.PostCount < lowContentPosts {
		score -= 5
	}
	if in.PostCount < veryLowContentPosts {
		score -= 10
	}
	if !in.HasMetaTags {
		score -= 3
	}
	if !in.HasGoodHeaders {
		score -= 3
	}

	return int(math.Round(math.Max(0, math.Min(100, score))))
}

func reportSummary(totalViolations, violatingPosts, postCount int) string {
	switch {
	case totalViolations > 0:
		return fmt.Sprintf("%d violations found across %d posts.", totalViolations, violatingPosts)
	case postCount < veryLowContentPosts:
		return fmt.Sprintf("Low content (%d posts).", postCount)
	default:
		return "Site appears compliant."
	}
}

func structureWarnings(hasMeta, hasHeaders bool, postCount int) []string {
	warnings := []string{}
	if !hasMeta {
		warnings = append(warnings, "Missing meta description")
	}
	if !hasHeaders {
		warnings = append(warnings, "Weak header structure")
	}
	if postCount < lowContentPosts {
		warnings = append(warnings, "Low content volume")
	}
	return warnings
}

func missingPagesSuggestion(missing []string) string {
	return "Add missing pages: " + strings.Join(missing, ", ")
}
