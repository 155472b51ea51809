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

// Bing scrapes the Bing HTML results page.
type Bing struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewBing creates a Bing search provider.
func NewBing(userAgent string) *Bing {
	return &Bing{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    "https://www.bing.com",
		userAgent:  userAgent,
	}
}

// WithBaseURL redirects the provider for testing.
func (b *Bing) WithBaseURL(base string) *Bing {
	b.baseURL = base
	return b
}

// Name identifies the provider in logs.
func (b *Bing) Name() string { return "bing" }

// Candidates returns up to n search results for the query.
func (b *Bing) Candidates(ctx context.Context, query string, n int) ([]core.Candidate, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s", b.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bing returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bing response: %w", err)
	}

	var candidates []core.Candidate
	doc.Find("li.b_algo").EachWithBreak(func(i int, s *goquery.Selection) bool {
		link := s.Find("h2 a").First()
		href, ok := link.Attr("href")
		if !ok || !strings.HasPrefix(href, "http") {
			return true
		}
		candidates = append(candidates, core.Candidate{
			URL:     href,
			Title:   strings.TrimSpace(link.Text()),
			Snippet: strings.TrimSpace(s.Find("p").First().Text()),
			Rank:    len(candidates),
		})
		return len(candidates) < n
	})
	return candidates, nil
}
