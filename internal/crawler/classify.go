package crawler

import (
	"bufio"
	_ "embed"
	"net/url"
	"regexp"
	"strings"
)

//go:embed denylist.txt
var denylistData string

// denyPrefixes holds the structural path vocabulary. A path segment that
// starts with any entry marks the URL as non-content.
var denyPrefixes = loadWordSet(denylistData)

var (
	pagedPath  = regexp.MustCompile(`/page/\d+`)
	numericSeg = regexp.MustCompile(`^\d+$`)
)

type wordSet struct {
	words  map[string]struct{}
	maxLen int
}

func loadWordSet(data string) wordSet {
	ws := wordSet{words: make(map[string]struct{})}
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		ws.words[w] = struct{}{}
		if len(w) > ws.maxLen {
			ws.maxLen = len(w)
		}
	}
	return ws
}

// matchesPrefix reports whether any word of the set is a prefix of seg.
func (ws wordSet) matchesPrefix(seg string) bool {
	limit := min(len(seg), ws.maxLen)
	for n := 1; n <= limit; n++ {
		if _, ok := ws.words[seg[:n]]; ok {
			return true
		}
	}
	return false
}

// DenyWords returns the number of entries in the structural vocabulary.
func DenyWords() int {
	return len(denyPrefixes.words)
}

// IsContentPost decides from the URL alone whether it points at an
// article-like page rather than a category, archive, utility or legal
// page. It is a heuristic: short slugs are missed and descriptive
// category slugs can slip through.
func IsContentPost(rawURL string) bool {
	u, err := url.Parse(strings.ToLower(strings.TrimSpace(rawURL)))
	if err != nil {
		return false
	}

	// Fragment variants duplicate the fragment-less page.
	if u.Fragment != "" {
		return false
	}

	path := u.EscapedPath()
	segments := splitSegments(path)

	if isStructuralPath(path, segments) {
		return false
	}

	if len(segments) == 0 {
		return false
	}

	last := segments[len(segments)-1]
	if isDescriptiveSlug(last) && last != "page" && last != "category" && last != "tag" {
		return true
	}

	// Directory-style URLs (WordPress permalinks end with a slash).
	if strings.HasSuffix(path, "/") && isDescriptiveSlug(last) {
		return true
	}

	return false
}

func isStructuralPath(path string, segments []string) bool {
	for _, seg := range segments {
		if denyPrefixes.matchesPrefix(seg) {
			return true
		}
	}
	return pagedPath.MatchString(path) || strings.HasSuffix(path, "/feed")
}

func isDescriptiveSlug(seg string) bool {
	return len(seg) > 4 && !numericSeg.MatchString(seg)
}

func splitSegments(path string) []string {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
