package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
)

// minContentLength is the point below which extracted text is too thin
// to score, triggering the browser fallback when one is configured.
const minContentLength = 200

// HTMLFetcher renders a page and returns its full HTML. Implemented by
// the chromedp Browser for JS-heavy sites.
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// Fetcher retrieves pages over plain HTTP, honoring robots.txt, and
// classifies every failure mode into a FetchStatus.
type Fetcher struct {
	client      *http.Client
	robotsCache map[string]*robotstxt.RobotsData
	robotsMu    sync.RWMutex
	userAgent   string
	browser     HTMLFetcher
}

// New creates a Fetcher with the given user agent.
func New(userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		robotsCache: make(map[string]*robotstxt.RobotsData),
		userAgent:   userAgent,
	}
}

// WithBrowser attaches a headless-browser fallback for pages whose
// plain HTTP response carries too little content.
func (f *Fetcher) WithBrowser(browser HTMLFetcher) *Fetcher {
	f.browser = browser
	return f
}

// Fetch retrieves one URL and returns the parsed page. Known failure
// modes come back as a Page with a non-success status and a nil error;
// the error return is reserved for unclassifiable conditions.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (core.Page, error) {
	page := core.Page{URL: urlStr}

	if !f.robotsAllowed(urlStr) {
		page.Status = core.FetchBlocked
		return page, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		page.Status = core.FetchNetworkError
		return page, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		page.Status = classifyTransportError(err)
		return page, nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		page.Status = core.FetchBlocked
		return page, nil
	case resp.StatusCode >= 400:
		page.Status = core.FetchNetworkError
		return page, nil
	}

	title, content, err := ExtractContent(resp.Body)
	if err != nil {
		page.Status = core.FetchParseError
		return page, nil
	}
	page.Title = title
	page.Content = content

	if blocked, marker := DetectBotBlock(title, content); blocked {
		logger.Debug("Bot block detected on %s (%s)", urlStr, marker)
		page.Status = core.FetchBlocked
		page.Content = ""
		return page, nil
	}

	if len(page.Content) < minContentLength && f.browser != nil {
		if rendered, ok := f.fetchRendered(ctx, urlStr); ok {
			page = rendered
			return page, nil
		}
	}

	if len(page.Content) == 0 {
		page.Status = core.FetchParseError
		return page, nil
	}

	page.Status = core.FetchSuccess
	return page, nil
}

// fetchRendered retries a thin page through the headless browser.
func (f *Fetcher) fetchRendered(ctx context.Context, urlStr string) (core.Page, bool) {
	html, err := f.browser.FetchHTML(ctx, urlStr)
	if err != nil {
		logger.Debug("Browser fallback failed for %s: %v", urlStr, err)
		return core.Page{}, false
	}
	title, content, err := ExtractContent(strings.NewReader(html))
	if err != nil || len(content) < minContentLength {
		return core.Page{}, false
	}
	if blocked, _ := DetectBotBlock(title, content); blocked {
		return core.Page{URL: urlStr, Status: core.FetchBlocked}, true
	}
	return core.Page{URL: urlStr, Title: title, Content: content, Status: core.FetchSuccess}, true
}

func classifyTransportError(err error) core.FetchStatus {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.FetchTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.FetchTimeout
	}
	return core.FetchNetworkError
}

func (f *Fetcher) robotsAllowed(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	f.robotsMu.RLock()
	robots, exists := f.robotsCache[robotsURL]
	f.robotsMu.RUnlock()

	if !exists {
		robots = f.fetchRobotsTxt(robotsURL)
		f.robotsMu.Lock()
		f.robotsCache[robotsURL] = robots
		f.robotsMu.Unlock()
	}

	if robots == nil {
		return true
	}

	group := robots.FindGroup(f.userAgent)
	return group.Test(u.Path)
}

func (f *Fetcher) fetchRobotsTxt(robotsURL string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return robots
}
