package scraping

import (
	"context"
	"fmt"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

const maxPageSize = 8 << 20

// PageLoader returns the html of a page.
type PageLoader interface {
	Load(ctx context.Context, pageURL string) (string, error)
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// HostLimiter rate-limits requests per hostname.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewHostLimiter(requestsPerSecond float64, burst int) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if limiter, ok := hl.limiters[host]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(hl.limit, hl.burst)
	hl.limiters[host] = limiter
	return limiter
}

func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.limiterFor("_").Wait(ctx)
	}
	return hl.limiterFor(u.Host).Wait(ctx)
}

type HTTPLoader struct {
	client  *http.Client
	limiter *HostLimiter
}

func NewHTTPLoader(limiter *HostLimiter) *HTTPLoader {
	return &HTTPLoader{client: &http.Client{Timeout: 30 * time.Second}, limiter: limiter}
}

func (l *HTTPLoader) Load(ctx context.Context, pageURL string) (string, error) {
	if l.limiter != nil {
		if err := l.limiter.WaitURL(ctx, pageURL); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	return string(body), nil
}

// BrowserLoader renders pages in headless Chrome for sites that build listings with javascript.
type BrowserLoader struct {
	limiter    *HostLimiter
	renderWait time.Duration
}

func NewBrowserLoader(limiter *HostLimiter) *BrowserLoader {
	return &BrowserLoader{limiter: limiter, renderWait: 3 * time.Second}
}

func (l *BrowserLoader) Load(ctx context.Context, pageURL string) (string, error) {
	if l.limiter != nil {
		if err := l.limiter.WaitURL(ctx, pageURL); err != nil {
			return "", err
		}
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(l.renderWait),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// consent banners hide the listing on some sites, missing buttons are fine
			_ = chromedp.Click(`#onetrust-accept-btn-handler, button[id*="accept"], [data-consent-accept]`,
				chromedp.NodeVisible, chromedp.AtLeast(0)).Do(ctx)
			return nil
		}),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering of %s failed: %w", pageURL, err)
	}
	return html, nil
}
