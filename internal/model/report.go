package model

import (
	"time"

	"policyguard/internal/detect"
)

// RequiredPages lists which legal and contact pages were linked from the
// site, in canonical order.
type RequiredPages struct {
	Found   []string `json:"found"`
	Missing []string `json:"missing"`
}

// SiteStructure summarizes homepage shape and content volume.
type SiteStructure struct {
	PostCount         int      `json:"postCount"`
	HasMetaTags       bool     `json:"hasMetaTags"`
	HasGoodHeaders    bool     `json:"hasGoodHeaders"`
	StructureWarnings []string `json:"structureWarnings"`
}

// PageResult is the merged analysis of one page.
type PageResult struct {
	URL         string             `json:"url"`
	Violations  []detect.Violation `json:"violations"`
	Summary     string             `json:"summary"`
	Suggestions []string           `json:"suggestions"`
}

// Report is the terminal artifact of a scan. It is built once and not
// modified afterwards.
type Report struct {
	URL                 string        `json:"url"`
	TotalViolations     int           `json:"totalViolations"`
	RequiredPages       RequiredPages `json:"requiredPages"`
	SiteStructure       SiteStructure `json:"siteStructure"`
	PagesWithViolations []PageResult  `json:"pagesWithViolations"`
	AISuggestions       []string      `json:"aiSuggestions"`
	Score               int           `json:"score"`
	Summary             string        `json:"summary"`
	ScannedAt           time.Time     `json:"scannedAt"`
}
