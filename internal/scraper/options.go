package scraper

import "time"

// RequestOptions is a higher-level set of options used to construct a
// low-level scraper.Request in a consistent way across the fetcher and
// the CLI.
type RequestOptions struct {
	URL       string
	Headers   map[string]string
	TimeoutMs int
	UserAgent string
	Accept    string
}

// BuildRequestFromOptions builds a scraper.Request from higher-level
// RequestOptions, applying the browser-like Accept header when one is
// configured and not already present.
func BuildRequestFromOptions(opts RequestOptions) Request {
	headers := map[string]string{}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	if opts.Accept != "" {
		if _, ok := headers["Accept"]; !ok {
			headers["Accept"] = opts.Accept
		}
	}

	var timeout time.Duration
	if opts.TimeoutMs > 0 {
		timeout = time.Duration(opts.TimeoutMs) * time.Millisecond
	}

	return Request{
		URL:       opts.URL,
		Headers:   headers,
		Timeout:   timeout,
		UserAgent: opts.UserAgent,
	}
}
