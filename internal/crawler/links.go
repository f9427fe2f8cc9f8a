package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// assetPath matches binary and static resources that are never pages.
var assetPath = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|svg|pdf|zip|mp4|mp3|ico|css|js)$`)

// replyTrackingParam marks WordPress comment-reply variants of a post.
const replyTrackingParam = "?replytocom="

// ExtractLinks returns the same-host page links of html resolved against
// baseURL, fragment-free and in first-seen order. It only fails when
// baseURL itself cannot be parsed; bad hrefs are skipped.
func ExtractLinks(html, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return ExtractDocumentLinks(doc, baseURL)
}

// ExtractDocumentLinks is ExtractLinks for an already parsed document.
func ExtractDocumentLinks(doc *goquery.Document, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("parse base url: %q has no host", baseURL)
	}
	return extractFromDocument(doc, base), nil
}

func extractFromDocument(doc *goquery.Document, base *url.URL) []string {
	baseHost := strings.ToLower(base.Hostname())
	seen := make(map[string]struct{})
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "mailto:") {
			return
		}

		linkURL, err := base.Parse(href)
		if err != nil {
			return
		}
		if linkURL.Scheme != "http" && linkURL.Scheme != "https" {
			return
		}
		if !strings.EqualFold(linkURL.Hostname(), baseHost) {
			return
		}

		linkURL.Fragment = ""
		linkURL.RawFragment = ""
		if linkURL.Path == "" {
			linkURL.Path = "/"
		}
		finalURL := linkURL.String()

		if assetPath.MatchString(finalURL) || strings.Contains(finalURL, replyTrackingParam) {
			return
		}
		if _, dup := seen[finalURL]; dup {
			return
		}
		seen[finalURL] = struct{}{}
		links = append(links, finalURL)
	})

	return links
}
