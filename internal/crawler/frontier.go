package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// Frontier is the set of discovered URLs of one scan. Membership is
// scoped to a single host, keyed by the fragment-free absolute URL, and
// iteration follows insertion order. It is safe for concurrent use.
type Frontier struct {
	mu    sync.Mutex
	host  string
	limit int
	seen  map[string]struct{}
	order []string
}

// NewFrontier creates a frontier for host. limit <= 0 means unbounded.
func NewFrontier(host string, limit int) *Frontier {
	return &Frontier{
		host:  strings.ToLower(host),
		limit: limit,
		seen:  make(map[string]struct{}),
	}
}

// Add inserts rawURL and reports whether it was new. URLs on another
// host, unparseable URLs and URLs beyond the limit are refused.
func (f *Frontier) Add(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.EqualFold(u.Hostname(), f.host) {
		return false
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	key := u.String()

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[key]; ok {
		return false
	}
	if f.limit > 0 && len(f.order) >= f.limit {
		return false
	}
	f.seen[key] = struct{}{}
	f.order = append(f.order, key)
	return true
}

// AddAll inserts every URL and returns how many were new.
func (f *Frontier) AddAll(urls []string) int {
	added := 0
	for _, u := range urls {
		if f.Add(u) {
			added++
		}
	}
	return added
}

// Len returns the number of URLs in the frontier.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

// URLs returns a snapshot in insertion order.
func (f *Frontier) URLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// ContentPosts filters the frontier through IsContentPost and dedupes
// the survivors by their fragment-free form.
func (f *Frontier) ContentPosts() []string {
	posts := make([]string, 0)
	seen := make(map[string]struct{})
	for _, u := range f.URLs() {
		if !IsContentPost(u) {
			continue
		}
		base, _, _ := strings.Cut(u, "#")
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		posts = append(posts, base)
	}
	return posts
}
