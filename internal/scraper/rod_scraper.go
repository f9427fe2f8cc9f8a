package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodScraper uses a real browser (via rod) to render JS-heavy pages
// before returning their HTML. When BrowserURL is empty a local headless
// browser is launched per request. InsecureTLS ignores certificate
// errors on both launched and remote browsers.
type RodScraper struct {
	BrowserURL  string
	Timeout     time.Duration
	InsecureTLS bool
}

func NewRodScraper(browserURL string, timeout time.Duration, insecureTLS bool) *RodScraper {
	return &RodScraper{BrowserURL: browserURL, Timeout: timeout, InsecureTLS: insecureTLS}
}

func (r *RodScraper) Scrape(ctx context.Context, req Request) (*Result, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}

	timeout := r.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	controlURL := r.BrowserURL
	if controlURL == "" {
		l := launcher.New().Headless(true)
		if r.InsecureTLS {
			l = l.Set("ignore-certificate-errors")
		}
		defer l.Cleanup()
		controlURL, err = l.Context(ctx).Launch()
		if err != nil {
			return nil, err
		}
		defer l.Kill()
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if timeout > 0 {
		browser = browser.Timeout(timeout)
	}
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	defer page.Close()

	// Remote browsers never saw the launch flag.
	if r.InsecureTLS {
		if err := (proto.SecuritySetIgnoreCertificateErrors{Ignore: true}).Call(page); err != nil {
			return nil, err
		}
	}

	if req.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: req.UserAgent}); err != nil {
			return nil, err
		}
	}

	if err := page.Navigate(u.String()); err != nil {
		return nil, err
	}
	if err := page.WaitLoad(); err != nil {
		return nil, err
	}

	htmlStr, err := page.HTML()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(htmlStr) == "" {
		return nil, ErrEmptyBody
	}

	finalURL := u.String()
	if info, err := page.Info(); err == nil && info != nil && info.URL != "" {
		finalURL = info.URL
	}

	return &Result{
		URL:      u.String(),
		FinalURL: finalURL,
		HTML:     htmlStr,
		Status:   200,
		Engine:   "browser",
	}, nil
}
