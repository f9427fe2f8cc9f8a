// Package page turns fetched HTML into the short-lived page record the
// detectors consume. Nothing here is cached between scans.
package page

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// mainContentSelector lists the containers that usually hold an
// article body on blog-style sites.
const mainContentSelector = "main, article, .post-content, .entry-content, .content, .post-body"

// Page is the parsed form of one fetched URL.
type Page struct {
	URL             string
	RawHTML         string
	Title           string
	H1              string
	MetaDescription string
	// Text is the whole body text with whitespace runs collapsed.
	Text string

	Doc *goquery.Document
}

// Parse builds a Page from raw HTML.
func Parse(rawURL, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	return &Page{
		URL:             rawURL,
		RawHTML:         html,
		Title:           strings.TrimSpace(doc.Find("title").Text()),
		H1:              strings.TrimSpace(doc.Find("h1").First().Text()),
		MetaDescription: doc.Find("meta[name='description']").AttrOr("content", ""),
		Text:            CollapseSpace(doc.Find("body").Text()),
		Doc:             doc,
	}, nil
}

// MainText returns the text of the main content containers. Nested
// matches contribute their text more than once, as the selector union
// does in a browser.
func (p *Page) MainText() string {
	return strings.TrimSpace(CollapseSpace(p.Doc.Find(mainContentSelector).Text()))
}

// HasMetaDescription reports whether a description meta tag exists,
// regardless of its content.
func (p *Page) HasMetaDescription() bool {
	return p.Doc.Find("meta[name='description']").Length() > 0
}

// HeadingCount counts h1, h2 and h3 elements.
func (p *Page) HeadingCount() int {
	return p.Doc.Find("h1,h2,h3").Length()
}

// Context renders the prompt block sent to the semantic detector,
// cut to limit characters.
func (p *Page) Context(content string, limit int) string {
	ctx := fmt.Sprintf("\nTITLE: %s\nH1: %s\nMETA: %s\nCONTENT: %s\n", p.Title, p.H1, p.MetaDescription, content)
	return Truncate(ctx, limit)
}

// CollapseSpace replaces every whitespace run with a single space.
func CollapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if isSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// Truncate cuts s to at most n characters without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Len counts characters the way Truncate does.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
