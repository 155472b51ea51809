package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser fetches fully rendered HTML through headless Chrome. It is
// the fallback for pages that serve their content via JavaScript.
type Browser struct {
	userAgent string
	waitAfter time.Duration
}

// NewBrowser creates a headless-browser fetcher.
func NewBrowser(userAgent string) *Browser {
	return &Browser{
		userAgent: userAgent,
		waitAfter: 2 * time.Second,
	}
}

// FetchHTML navigates to the URL and returns the rendered document.
func (b *Browser) FetchHTML(ctx context.Context, urlStr string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(b.userAgent),
		chromedp.Flag("disable-downloads", true),
		chromedp.Flag("disable-plugins", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var htmlContent string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(urlStr),
		chromedp.Sleep(b.waitAfter),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", fmt.Errorf("browser fetch failed: %w", err)
	}
	return htmlContent, nil
}
