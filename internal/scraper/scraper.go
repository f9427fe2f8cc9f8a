package scraper

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

var (
	// ErrStatus is returned when the server answers with a non-2xx status.
	ErrStatus = errors.New("non-success status")
	// ErrEmptyBody is returned when a page answers successfully with no content.
	ErrEmptyBody = errors.New("empty response body")
	// ErrTooManyRedirects is returned when the redirect budget is exhausted.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Request represents a simplified fetch request used by the scraper package.
type Request struct {
	URL       string
	Headers   map[string]string
	Timeout   time.Duration
	UserAgent string
}

// Result is the raw page returned by an engine.
type Result struct {
	URL      string
	FinalURL string
	HTML     string
	Status   int
	Engine   string
}

// Scraper defines the interface for page engines.
type Scraper interface {
	Scrape(ctx context.Context, req Request) (*Result, error)
}

// HTTPOptions configures the plain HTTP engine.
type HTTPOptions struct {
	Timeout      time.Duration
	MaxRedirects int
	InsecureTLS  bool
}

// HTTPScraper is a basic implementation using net/http.
type HTTPScraper struct {
	client *http.Client
}

func NewHTTPScraper(opts HTTPOptions) *HTTPScraper {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // crawl coverage over certificate hygiene
	}

	maxRedirects := opts.MaxRedirects
	return &HTTPScraper{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return ErrTooManyRedirects
				}
				return nil
			},
		},
	}
}

func (s *HTTPScraper) Scrape(ctx context.Context, req Request) (*Result, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}

	if u.Scheme == "" {
		u.Scheme = "http"
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(bodyBytes) == 0 {
		return nil, ErrEmptyBody
	}

	return &Result{
		URL:      u.String(),
		FinalURL: resp.Request.URL.String(),
		HTML:     string(bodyBytes),
		Status:   resp.StatusCode,
		Engine:   "http",
	}, nil
}
