// Package scan runs a whole-site compliance scan: homepage fetch, link
// discovery, a one-hop shallow crawl, content-post selection, page
// analysis and scoring.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"policyguard/internal/config"
	"policyguard/internal/crawler"
	"policyguard/internal/detect"
	"policyguard/internal/metrics"
	"policyguard/internal/model"
	"policyguard/internal/page"
)

var (
	// ErrURLRequired is returned for an empty target.
	ErrURLRequired = errors.New("url required")
	// ErrHomepageUnreachable aborts a scan whose homepage cannot be fetched.
	ErrHomepageUnreachable = errors.New("failed to fetch homepage")
)

// Fetcher returns the HTML of a page or an error for any failure.
type Fetcher interface {
	FetchHTML(ctx context.Context, rawURL string) (string, error)
}

// Scanner is what the HTTP layer and CLI depend on.
type Scanner interface {
	Scan(ctx context.Context, rawURL string) (*model.Report, error)
}

// Options bounds one scan.
type Options struct {
	ShallowCrawlLimit  int
	MaxPages           int
	AnalyzeConcurrency int
	ContextChars       int
	MinContextChars    int
	// Timeout bounds the whole scan. Zero leaves it unbounded.
	Timeout time.Duration
}

// OptionsFromConfig maps the scan section of the config file.
func OptionsFromConfig(cfg config.ScanConfig) Options {
	return Options{
		ShallowCrawlLimit:  cfg.ShallowCrawlLimit,
		MaxPages:           cfg.MaxPages,
		AnalyzeConcurrency: cfg.AnalyzeConcurrency,
		ContextChars:       cfg.ContextChars,
		MinContextChars:    cfg.MinContextChars,
		Timeout:            time.Duration(cfg.TimeoutMs) * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	if o.ShallowCrawlLimit <= 0 {
		o.ShallowCrawlLimit = 20
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 500
	}
	if o.AnalyzeConcurrency <= 0 {
		o.AnalyzeConcurrency = 12
	}
	if o.ContextChars <= 0 {
		o.ContextChars = 16000
	}
	if o.MinContextChars <= 0 {
		o.MinContextChars = 200
	}
	return o
}

// Service is the scan orchestrator. It holds no per-scan state and can
// serve concurrent scans.
type Service struct {
	fetcher    Fetcher
	classifier detect.Classifier
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires a fetcher and a classifier. A nil classifier means
// semantic analysis is disabled.
func NewService(fetcher Fetcher, classifier detect.Classifier, opts Options, logger *slog.Logger) *Service {
	if classifier == nil {
		classifier = detect.Disabled()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:    fetcher,
		classifier: classifier,
		opts:       opts.withDefaults(),
		logger:     logger,
		now:        time.Now,
	}
}

// pageOutcome is the result of analyzing one content post. Nil slots in
// the results slice mark posts that were skipped.
type pageOutcome struct {
	result   model.PageResult
	semantic int
	clear    int
}

// Scan runs the full pipeline for rawURL. Only an empty target or an
// unreachable homepage fail the scan; every other failure shrinks the
// report instead.
func (s *Service) Scan(ctx context.Context, rawURL string) (*model.Report, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrURLRequired
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	log := s.logger.With("url", rawURL)

	log.Info("scan stage", "stage", "fetching-homepage")
	html, err := s.fetcher.FetchHTML(ctx, rawURL)
	if err != nil {
		metrics.RecordScan("failed", 0)
		return nil, fmt.Errorf("%w: %w", ErrHomepageUnreachable, err)
	}
	home, err := page.Parse(rawURL, html)
	if err != nil {
		metrics.RecordScan("failed", 0)
		return nil, err
	}

	log.Info("scan stage", "stage", "link-discovery")
	links, err := crawler.ExtractDocumentLinks(home.Doc, rawURL)
	if err != nil {
		log.Warn("homepage links unavailable", "error", err)
		links = nil
	}
	required := crawler.CheckRequired(links)
	log.Info("required pages checked", "found", len(required.Found), "missing", len(required.Missing))

	log.Info("scan stage", "stage", "shallow-crawl")
	frontier := crawler.NewFrontier(hostOf(rawURL), s.opts.MaxPages)
	frontier.AddAll(links)
	s.shallowCrawl(ctx, log, frontier, links)
	log.Info("shallow crawl complete", "pages", frontier.Len())

	log.Info("scan stage", "stage", "url-filtering")
	posts := frontier.ContentPosts()
	postCount := len(posts)
	log.Info("content posts selected", "posts", postCount)

	log.Info("scan stage", "stage", "homepage-analysis")
	homeContext := home.Context(page.Truncate(home.Text, s.opts.ContextChars), s.opts.ContextChars)
	homeSemantic := s.classifier.Classify(ctx, homeContext, rawURL)
	homeClear := detect.DetectClear(home.Doc)
	homeAnalysis := detect.Merge(homeSemantic, homeClear)
	semanticCount := len(homeSemantic.Violations)
	clearCount := len(homeClear)

	log.Info("scan stage", "stage", "batch-post-analysis")
	outcomes, analyzed := s.analyzePosts(ctx, log, posts)

	log.Info("scan stage", "stage", "aggregation-and-scoring")
	pagesWithViolations := []model.PageResult{}
	suggestions := append([]string{}, homeAnalysis.Suggestions...)
	total := len(homeAnalysis.Violations)
	violatingPosts := 0

	if len(homeAnalysis.Violations) > 0 {
		pagesWithViolations = append(pagesWithViolations, model.PageResult{
			URL:         rawURL,
			Violations:  homeAnalysis.Violations,
			Summary:     homeAnalysis.Summary,
			Suggestions: homeAnalysis.Suggestions,
		})
	}
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		semanticCount += o.semantic
		clearCount += o.clear
		if len(o.result.Violations) == 0 {
			continue
		}
		total += len(o.result.Violations)
		violatingPosts++
		pagesWithViolations = append(pagesWithViolations, o.result)
		suggestions = append(suggestions, o.result.Suggestions...)
	}
	if len(required.Missing) > 0 {
		suggestions = append(suggestions, missingPagesSuggestion(required.Missing))
	}
	if len(suggestions) > suggestionsCap {
		suggestions = suggestions[:suggestionsCap]
	}

	hasMeta := home.HasMetaDescription()
	hasHeaders := home.HeadingCount() >= goodHeaderMinCount

	report := &model.Report{
		URL:             rawURL,
		TotalViolations: total,
		RequiredPages:   model.RequiredPages(required),
		SiteStructure: model.SiteStructure{
			PostCount:         postCount,
			HasMetaTags:       hasMeta,
			HasGoodHeaders:    hasHeaders,
			StructureWarnings: structureWarnings(hasMeta, hasHeaders, postCount),
		},
		PagesWithViolations: pagesWithViolations,
		AISuggestions:       suggestions,
		Score: Score(ScoreInput{
			TotalViolations: total,
			MissingPages:    len(required.Missing),
			PostCount:       postCount,
			HasMetaTags:     hasMeta,
			HasGoodHeaders:  hasHeaders,
		}),
		Summary:   reportSummary(total, violatingPosts, postCount),
		ScannedAt: s.now().UTC(),
	}

	metrics.RecordViolations("semantic", semanticCount)
	metrics.RecordViolations("clear", clearCount)
	metrics.RecordScan("completed", analyzed+1)

	if err := ctx.Err(); err != nil {
		log.Warn("scan deadline reached, report is partial", "error", err)
	}
	log.Info("scan stage", "stage", "done",
		"posts", postCount,
		"analyzed", analyzed+1,
		"violations", total,
		"score", report.Score,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// shallowCrawl fetches the first homepage links and adds every link they
// expose to the frontier. Failed pages are skipped.
func (s *Service) shallowCrawl(ctx context.Context, log *slog.Logger, frontier *crawler.Frontier, links []string) {
	targets := links
	if len(targets) > s.opts.ShallowCrawlLimit {
		targets = targets[:s.opts.ShallowCrawlLimit]
	}

	w := Window{Width: s.opts.ShallowCrawlLimit}
	_ = w.Run(ctx, len(targets), func(ctx context.Context, i int) {
		if frontier.Len() >= s.opts.MaxPages {
			return
		}
		html, err := s.fetcher.FetchHTML(ctx, targets[i])
		if err != nil {
			return
		}
		found, err := crawler.ExtractLinks(html, targets[i])
		if err != nil {
			log.Debug("crawled page links unavailable", "page", targets[i], "error", err)
			return
		}
		frontier.AddAll(found)
	})
}

// analyzePosts fetches and classifies every post through the analysis
// window. The returned slice follows posts order.
func (s *Service) analyzePosts(ctx context.Context, log *slog.Logger, posts []string) ([]*pageOutcome, int) {
	outcomes := make([]*pageOutcome, len(posts))
	var done, analyzed atomic.Int64

	w := Window{Width: s.opts.AnalyzeConcurrency}
	_ = w.Run(ctx, len(posts), func(ctx context.Context, i int) {
		defer func() {
			n := done.Add(1)
			log.Debug("post progress", "completed", n, "total", len(posts))
		}()

		postURL := posts[i]
		html, err := s.fetcher.FetchHTML(ctx, postURL)
		if err != nil {
			return
		}
		p, err := page.Parse(postURL, html)
		if err != nil {
			log.Debug("post parse failed", "page", postURL, "error", err)
			return
		}

		postContext := p.Context(p.MainText(), s.opts.ContextChars)
		if page.Len(postContext) < s.opts.MinContextChars {
			log.Debug("post skipped, content too short", "page", postURL, "chars", page.Len(postContext))
			return
		}
		analyzed.Add(1)

		semantic := s.classifier.Classify(ctx, postContext, postURL)
		findings := detect.DetectClear(p.Doc)
		merged := detect.Merge(semantic, findings)
		if len(merged.Violations) > 0 {
			log.Info("violations found", "page", postURL, "violations", len(merged.Violations))
		}

		outcomes[i] = &pageOutcome{
			result: model.PageResult{
				URL:         postURL,
				Violations:  merged.Violations,
				Summary:     merged.Summary,
				Suggestions: merged.Suggestions,
			},
			semantic: len(semantic.Violations),
			clear:    len(findings),
		}
	})

	return outcomes, int(analyzed.Load())
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
