package scraper

import (
	"context"
	"log/slog"
	"time"

	"policyguard/internal/config"
	"policyguard/internal/metrics"
)

// Fetcher retrieves page HTML with the scanner's fixed request profile:
// browser headers, per-request timeout, bounded redirects.
type Fetcher struct {
	engine Scraper
	opts   RequestOptions
	logger *slog.Logger
}

// NewFetcher wraps engine with the request profile described by cfg.
func NewFetcher(engine Scraper, cfg config.ScraperConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		engine: engine,
		opts: RequestOptions{
			TimeoutMs: cfg.TimeoutMs,
			UserAgent: cfg.UserAgent,
			Accept:    cfg.Accept,
		},
		logger: logger,
	}
}

// NewFetcherFromConfig picks the browser engine when rod is enabled and
// the plain HTTP engine otherwise.
func NewFetcherFromConfig(cfg *config.Config, logger *slog.Logger) *Fetcher {
	timeout := time.Duration(cfg.Scraper.TimeoutMs) * time.Millisecond

	var engine Scraper
	if cfg.Rod.Enabled {
		engine = NewRodScraper(cfg.Rod.BrowserURL, timeout, cfg.Scraper.InsecureTLS())
	} else {
		engine = NewHTTPScraper(HTTPOptions{
			Timeout:      timeout,
			MaxRedirects: cfg.Scraper.MaxRedirects,
			InsecureTLS:  cfg.Scraper.InsecureTLS(),
		})
	}
	return NewFetcher(engine, cfg.Scraper, logger)
}

// FetchHTML returns the page body. Every failure (transport, timeout,
// status, empty body) comes back as an error; callers decide whether it
// is fatal.
func (f *Fetcher) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	opts := f.opts
	opts.URL = rawURL

	start := time.Now()
	res, err := f.engine.Scrape(ctx, BuildRequestFromOptions(opts))
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordFetch(false, elapsed.Milliseconds())
		f.logger.Warn("fetch failed", "url", rawURL, "error", err, "latency_ms", elapsed.Milliseconds())
		return "", err
	}

	metrics.RecordFetch(true, elapsed.Milliseconds())
	f.logger.Debug("fetched", "url", rawURL, "engine", res.Engine, "bytes", len(res.HTML), "latency_ms", elapsed.Milliseconds())
	return res.HTML, nil
}
