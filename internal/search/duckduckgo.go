package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hunterwarburton/ferret/internal/core"
)

// DuckDuckGo queries the DuckDuckGo HTML endpoint, which serves plain
// markup without JavaScript.
type DuckDuckGo struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewDuckDuckGo creates a DuckDuckGo search provider.
func NewDuckDuckGo(userAgent string) *DuckDuckGo {
	return &DuckDuckGo{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    "https://html.duckduckgo.com",
		userAgent:  userAgent,
	}
}

// WithBaseURL redirects the provider for testing.
func (d *DuckDuckGo) WithBaseURL(base string) *DuckDuckGo {
	d.baseURL = base
	return d
}

// Name identifies the provider in logs.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Candidates returns up to n search results for the query.
func (d *DuckDuckGo) Candidates(ctx context.Context, query string, n int) ([]core.Candidate, error) {
	endpoint := fmt.Sprintf("%s/html/?q=%s", d.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duckduckgo response: %w", err)
	}

	var candidates []core.Candidate
	doc.Find("div.result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveRedirect(href)
		if target == "" {
			return true
		}
		candidates = append(candidates, core.Candidate{
			URL:     target,
			Title:   strings.TrimSpace(link.Text()),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
			Rank:    len(candidates),
		})
		return len(candidates) < n
	})
	return candidates, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.Contains(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
