package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"policyguard/internal/config"
	"policyguard/internal/detect"
	"policyguard/internal/scraper"
)

type fakeClassifier struct {
	mu    sync.Mutex
	calls []string
	fn    func(text, url string) detect.Analysis
}

func (f *fakeClassifier) Enabled() bool { return true }

func (f *fakeClassifier) Classify(_ context.Context, text, url string) detect.Analysis {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(text, url)
	}
	return detect.Analysis{Violations: []detect.Violation{}, Summary: detect.SummarySafe, Suggestions: []string{}}
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type siteOptions struct {
	requiredPages bool
	posts         int
	meta          bool
	headings      bool
	// postBody overrides the article text of a post by index.
	postBody map[int]string
	// missing posts are linked from the homepage but answer 404.
	missing map[int]bool
}

const benignParagraph = "Morning light settles over the quiet harbor while the ferries idle at the pier. "

func postPath(i int) string {
	return fmt.Sprintf("/2024/harbor-walk-%d", i)
}

func newSite(t *testing.T, opts siteOptions) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		var b strings.Builder
		b.WriteString("<html><head><title>Harbor Notes</title>")
		if opts.meta {
			b.WriteString(`<meta name="description" content="Walks around the harbor">`)
		}
		b.WriteString("</head><body>")
		if opts.headings {
			b.WriteString("<h1>Harbor Notes</h1><h2>Latest</h2><h3>Archive</h3>")
		}
		if opts.requiredPages {
			for _, p := range []string{"/about", "/contact", "/privacy-policy", "/terms", "/disclaimer"} {
				fmt.Fprintf(&b, `<a href="%s">%s</a>`, p, strings.TrimPrefix(p, "/"))
			}
		}
		for i := 0; i < opts.posts; i++ {
			fmt.Fprintf(&b, `<a href="%s">Walk %d</a>`, postPath(i), i)
		}
		b.WriteString(`<a href="mailto:me@example.com">mail</a><a href="https://elsewhere.test/x-story">away</a>`)
		b.WriteString("</body></html>")
		_, _ = w.Write([]byte(b.String()))
	})
	for _, p := range []string{"/about", "/contact", "/privacy-policy", "/terms", "/disclaimer"} {
		mux.HandleFunc(p, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html><body><a href="/">home</a></body></html>`))
		})
	}
	for i := 0; i < opts.posts; i++ {
		if opts.missing[i] {
			continue
		}
		body := strings.Repeat(benignParagraph, 4)
		if override, ok := opts.postBody[i]; ok {
			body = override
		}
		mux.HandleFunc(postPath(i), func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<html><head><title>Walk %d</title></head><body><article><h1>Walk %d</h1><p>%s</p></article><a href="/">home</a></body></html>`, i, i, body)
		})
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(classifier detect.Classifier, opts Options) *Service {
	cfg := config.Default()
	cfg.Scraper.TimeoutMs = 5000
	fetcher := scraper.NewFetcherFromConfig(cfg, testLogger())
	svc := NewService(fetcher, classifier, opts, testLogger())
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc
}

func TestScanCompliantSite(t *testing.T) {
	srv := newSite(t, siteOptions{requiredPages: true, posts: 45, meta: true, headings: true})
	fc := &fakeClassifier{}
	svc := newTestService(fc, Options{})

	report, err := svc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Score != 100 {
		t.Fatalf("expected score 100, got %d", report.Score)
	}
	if report.Summary != "Site appears compliant." {
		t.Fatalf("unexpected summary %q", report.Summary)
	}
	if report.SiteStructure.PostCount != 45 {
		t.Fatalf("expected 45 posts, got %d", report.SiteStructure.PostCount)
	}
	if len(report.RequiredPages.Missing) != 0 || len(report.RequiredPages.Found) != 5 {
		t.Fatalf("unexpected required pages: %+v", report.RequiredPages)
	}
	if len(report.SiteStructure.StructureWarnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.SiteStructure.StructureWarnings)
	}
	if report.TotalViolations != 0 || len(report.PagesWithViolations) != 0 {
		t.Fatalf("expected no violations, got %+v", report.PagesWithViolations)
	}
	// homepage plus every post
	if got := fc.callCount(); got != 46 {
		t.Fatalf("expected 46 classifier calls, got %d", got)
	}
	if !report.ScannedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected scannedAt %v", report.ScannedAt)
	}
}

func TestScanLowContentMissingPages(t *testing.T) {
	srv := newSite(t, siteOptions{posts: 10, meta: true, headings: true})
	svc := newTestService(&fakeClassifier{}, Options{})

	report, err := svc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Score != 75 {
		t.Fatalf("expected score 75, got %d", report.Score)
	}
	if report.Summary != "Low content (10 posts)." {
		t.Fatalf("unexpected summary %q", report.Summary)
	}
	want := []string{"about", "contact", "privacy", "terms", "disclaimer"}
	if strings.Join(report.RequiredPages.Missing, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected missing pages %v", report.RequiredPages.Missing)
	}
	last := report.AISuggestions[len(report.AISuggestions)-1]
	if last != "Add missing pages: about, contact, privacy, terms, disclaimer" {
		t.Fatalf("unexpected suggestion %q", last)
	}
	if got := report.SiteStructure.StructureWarnings; len(got) != 1 || got[0] != "Low content volume" {
		t.Fatalf("unexpected warnings %v", got)
	}
}

func TestScanDeterministicViolationOnPost(t *testing.T) {
	body := strings.Repeat(benignParagraph, 3) + "Grab the cracked software bundle today."
	srv := newSite(t, siteOptions{
		requiredPages: true,
		posts:         45,
		meta:          true,
		headings:      true,
		postBody:      map[int]string{3: body},
	})
	svc := newTestService(&fakeClassifier{}, Options{})

	report, err := svc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalViolations != 1 || len(report.PagesWithViolations) != 1 {
		t.Fatalf("expected one violating page, got %+v", report.PagesWithViolations)
	}
	pr := report.PagesWithViolations[0]
	if pr.URL != srv.URL+postPath(3) {
		t.Fatalf("unexpected page %s", pr.URL)
	}
	v := pr.Violations[0]
	if v.Type != detect.Copyright || v.Confidence != 0.95 {
		t.Fatalf("unexpected violation %+v", v)
	}
	if pr.Summary != detect.SummaryViolationsDetected {
		t.Fatalf("unexpected summary %q", pr.Summary)
	}
	if report.Score != 97 {
		t.Fatalf("expected score 97, got %d", report.Score)
	}
	if report.Summary != "1 violations found across 1 posts." {
		t.Fatalf("unexpected report summary %q", report.Summary)
	}
}

func TestScanSemanticViolationsKeepCandidateOrder(t *testing.T) {
	srv := newSite(t, siteOptions{requiredPages: true, posts: 30, meta: true, headings: true})
	flagged := map[string]bool{
		srv.URL + postPath(20): true,
		srv.URL + postPath(2):  true,
		srv.URL + postPath(11): true,
	}
	fc := &fakeClassifier{fn: func(_ string, url string) detect.Analysis {
		if !flagged[url] {
			return detect.Analysis{Violations: []detect.Violation{}, Summary: "clean", Suggestions: []string{}}
		}
		return detect.Analysis{
			Violations:  []detect.Violation{{Type: detect.Gambling, Excerpt: "bet", Confidence: 0.9}},
			Summary:     "gambling",
			Suggestions: []string{"Remove betting promotion on " + url},
		}
	}}
	svc := newTestService(fc, Options{AnalyzeConcurrency: 4})

	report, err := svc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalViolations != 3 {
		t.Fatalf("expected 3 violations, got %d", report.TotalViolations)
	}
	var order []string
	for _, p := range report.PagesWithViolations {
		order = append(order, strings.TrimPrefix(p.URL, srv.URL))
	}
	want := []string{postPath(2), postPath(11), postPath(20)}
	if strings.Join(order, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected order %v", order)
	}
	if len(report.AISuggestions) != 3 {
		t.Fatalf("unexpected suggestions %v", report.AISuggestions)
	}
	// 100 - 9 violations - 5 under 40 posts
	if report.Score != 86 {
		t.Fatalf("expected score 86, got %d", report.Score)
	}
}

func TestScanHomepageViolationsCounted(t *testing.T) {
	srv := newSite(t, siteOptions{requiredPages: true, posts: 45, meta: true, headings: true})
	fc := &fakeClassifier{fn: func(_ string, url string) detect.Analysis {
		if url != srv.URL {
			return detect.Analysis{Violations: []detect.Violation{}, Summary: "clean", Suggestions: []string{}}
		}
		return detect.Analysis{
			Violations:  []detect.Violation{{Type: detect.Adult, Excerpt: "x", Confidence: 0.99}},
			Summary:     "adult",
			Suggestions: []string{"Remove adult content"},
		}
	}}
	svc := newTestService(fc, Options{})

	report, err := svc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalViolations != 1 || report.PagesWithViolations[0].URL != srv.URL {
		t.Fatalf("homepage violation missing: %+v", report)
	}
	if report.AISuggestions[0] != "Remove adult content" {
		t.Fatalf("homepage suggestions must come first: %v", report.AISuggestions)
	}
	if report.Summary != "1 violations found across 0 posts." {
		t.Fatalf("homepage must not count as a post: %q", report.Summary)
	}
}

func TestScanSkipsShortAndFailingPosts(t *testing.T) {
	srv := newSite(t, siteOptions{
		requiredPages: true,
		posts:         5,
		meta:          true,
		headings:      true,
		postBody:      map[int]string{1: "tiny"},
		missing:       map[int]bool{4: true},
	})
	fc := &fakeClassifier{}
	svc := newTestService(fc, Options{})

	report, err := svc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.SiteStructure.PostCount != 5 {
		t.Fatalf("skipped posts still count as discovered, got %d", report.SiteStructure.PostCount)
	}
	// homepage and posts 0, 2, 3
	if got := fc.callCount(); got != 4 {
		t.Fatalf("expected 4 classifier calls, got %d", got)
	}
}

func TestScanHomepageUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	svc := newTestService(&fakeClassifier{}, Options{})
	_, err := svc.Scan(context.Background(), addr)
	if !errors.Is(err, ErrHomepageUnreachable) {
		t.Fatalf("expected ErrHomepageUnreachable, got %v", err)
	}
}

func TestScanHomepageStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newTestService(&fakeClassifier{}, Options{})
	_, err := svc.Scan(context.Background(), srv.URL)
	if !errors.Is(err, ErrHomepageUnreachable) || !errors.Is(err, scraper.ErrStatus) {
		t.Fatalf("expected wrapped status error, got %v", err)
	}
}

func TestScanEmptyURL(t *testing.T) {
	svc := newTestService(nil, Options{})
	if _, err := svc.Scan(context.Background(), "  "); !errors.Is(err, ErrURLRequired) {
		t.Fatalf("expected ErrURLRequired, got %v", err)
	}
}

func TestScanFrontierCap(t *testing.T) {
	srv := newSite(t, siteOptions{requiredPages: true, posts: 45, meta: true, headings: true})
	svc := newTestService(&fakeClassifier{}, Options{MaxPages: 10})

	report, err := svc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// five required pages fill half the frontier
	if report.SiteStructure.PostCount != 5 {
		t.Fatalf("expected 5 posts under the cap, got %d", report.SiteStructure.PostCount)
	}
}

func TestDisabledClassifierScan(t *testing.T) {
	srv := newSite(t, siteOptions{requiredPages: true, posts: 2, meta: true, headings: true})
	svc := newTestService(detect.Disabled(), Options{})

	report, err := svc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalViolations != 0 {
		t.Fatalf("expected no violations, got %d", report.TotalViolations)
	}
}

func TestScanDeadlineReturnsPartialReport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		var b strings.Builder
		b.WriteString(`<html><head><meta name="description" content="d"></head><body><h1>a</h1><h2>b</h2><h3>c</h3>`)
		for i := 0; i < 30; i++ {
			fmt.Fprintf(&b, `<a href="%s">Walk %d</a>`, postPath(i), i)
		}
		b.WriteString("</body></html>")
		_, _ = w.Write([]byte(b.String()))
	})
	for i := 0; i < 30; i++ {
		mux.HandleFunc(postPath(i), func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(5 * time.Second):
			case <-r.Context().Done():
				return
			}
			_, _ = w.Write([]byte("<html><body><article>" + strings.Repeat(benignParagraph, 4) + "</article></body></html>"))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	fc := &fakeClassifier{}
	svc := newTestService(fc, Options{Timeout: 300 * time.Millisecond})

	start := time.Now()
	report, err := svc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("deadline must not fail the scan: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("scan ignored the deadline, took %v", elapsed)
	}
	if report.SiteStructure.PostCount != 30 {
		t.Fatalf("discovered posts still count, got %d", report.SiteStructure.PostCount)
	}
	// only the homepage is analyzed before the deadline
	if got := fc.callCount(); got != 1 {
		t.Fatalf("expected 1 classifier call, got %d", got)
	}
	if report.TotalViolations != 0 || len(report.PagesWithViolations) != 0 {
		t.Fatalf("unexpected violations %+v", report.PagesWithViolations)
	}
	if report.Summary != "Site appears compliant." {
		t.Fatalf("unexpected summary %q", report.Summary)
	}
}

func TestScanShallowCrawlFollowsHubs(t *testing.T) {
	const hubs = 25
	var hubHits atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		var b strings.Builder
		b.WriteString("<html><body>")
		for i := 0; i < hubs; i++ {
			fmt.Fprintf(&b, `<a href="/category/hub-%d">Hub %d</a>`, i, i)
		}
		b.WriteString("</body></html>")
		_, _ = w.Write([]byte(b.String()))
	})
	for i := 0; i < hubs; i++ {
		mux.HandleFunc(fmt.Sprintf("/category/hub-%d", i), func(w http.ResponseWriter, r *http.Request) {
			hubHits.Add(1)
			fmt.Fprintf(w, `<html><body><a href="%s">Walk %d</a><a href="/">home</a></body></html>`, postPath(i), i)
		})
		mux.HandleFunc(postPath(i), func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<html><body><article><p>%s</p></article></body></html>`, strings.Repeat(benignParagraph, 4))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	fc := &fakeClassifier{}
	svc := newTestService(fc, Options{})

	report, err := svc.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := hubHits.Load(); got != 20 {
		t.Fatalf("expected 20 hub fetches, got %d", got)
	}
	// posts behind the first 20 hubs only
	if report.SiteStructure.PostCount != 20 {
		t.Fatalf("expected 20 posts, got %d", report.SiteStructure.PostCount)
	}
	if got := fc.callCount(); got != 21 {
		t.Fatalf("expected 21 classifier calls, got %d", got)
	}
}
