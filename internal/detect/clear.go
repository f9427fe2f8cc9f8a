package detect

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var clearPhrases = []string{
	"cracked software",
	"torrent download",
	"get rich quick",
	"make money fast",
	"win money online",
	"hack tool",
	"keygen",
	"serial number crack",
	"activation key crack",
}

var (
	piracyWords = []string{"crack", "torrent"}
	mediaWords  = []string{"software", "game", "movie"}
)

const (
	phraseConfidence = 0.95
	linkConfidence   = 0.9
)

// DetectClear finds unambiguous piracy and get-rich-quick signals in a
// parsed page. It makes no network calls and returns the same findings
// for the same document.
func DetectClear(doc *goquery.Document) []Violation {
	violations := []Violation{}
	if doc == nil {
		return violations
	}

	body := strings.ToLower(doc.Find("body").Text())
	for _, phrase := range clearPhrases {
		if strings.Contains(body, phrase) {
			violations = append(violations, Violation{
				Type:       Copyright,
				Excerpt:    fmt.Sprintf("Clear violation phrase found: %q", phrase),
				Confidence: phraseConfidence,
			})
		}
	}

	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		// Only the visible text counts; a piracy href alone is not flagged.
		text := strings.ToLower(a.Text())
		if !containsAny(text, piracyWords) || !containsAny(text, mediaWords) {
			return
		}
		href := a.AttrOr("href", "")
		violations = append(violations, Violation{
			Type:       Copyright,
			Excerpt:    fmt.Sprintf("Illegal download link: %s (%s)", strings.TrimSpace(text), href),
			Confidence: linkConfidence,
		})
	})

	return violations
}
