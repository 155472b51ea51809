package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articleHTML(body string) string {
	return `<html><head><title>Test Article</title></head><body>
<nav>Home | About</nav>
<article>` + body + `</article>
<footer>copyright</footer>
</body></html>`
}

func longText() string {
	return strings.Repeat("Go is a statically typed compiled language designed at Google. ", 10)
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(articleHTML("<p>" + longText() + "</p>")))
	}))
	defer srv.Close()

	f := New("TestAgent/1.0")
	page, err := f.Fetch(context.Background(), srv.URL+"/article")
	require.NoError(t, err)

	assert.Equal(t, core.FetchSuccess, page.Status)
	assert.Equal(t, "Test Article", page.Title)
	assert.Contains(t, page.Content, "statically typed")
	assert.NotContains(t, page.Content, "Home | About", "navigation chrome is stripped")
}

func TestFetchRespectsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		_, _ = w.Write([]byte(articleHTML("<p>" + longText() + "</p>")))
	}))
	defer srv.Close()

	f := New("TestAgent/1.0")

	page, err := f.Fetch(context.Background(), srv.URL+"/private/secret")
	require.NoError(t, err)
	assert.Equal(t, core.FetchBlocked, page.Status)

	page, err = f.Fetch(context.Background(), srv.URL+"/public")
	require.NoError(t, err)
	assert.Equal(t, core.FetchSuccess, page.Status)
}

func TestFetchClassifiesHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		status core.FetchStatus
	}{
		{"forbidden", http.StatusForbidden, core.FetchBlocked},
		{"rate limited", http.StatusTooManyRequests, core.FetchBlocked},
		{"not found", http.StatusNotFound, core.FetchNetworkError},
		{"server error", http.StatusBadGateway, core.FetchNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/robots.txt" {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			f := New("TestAgent/1.0")
			page, err := f.Fetch(context.Background(), srv.URL+"/x")
			require.NoError(t, err)
			assert.Equal(t, tt.status, page.Status)
		})
	}
}

func TestFetchDetectsBotBlockPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><head><title>Attention Required</title></head><body><p>Please complete the CAPTCHA to verify you are human and continue browsing this site today.</p></body></html>`))
	}))
	defer srv.Close()

	f := New("TestAgent/1.0")
	page, err := f.Fetch(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	assert.Equal(t, core.FetchBlocked, page.Status)
	assert.Empty(t, page.Content)
}

type fakeBrowser struct {
	html string
	err  error
}

func (f *fakeBrowser) FetchHTML(context.Context, string) (string, error) {
	return f.html, f.err
}

func TestFetchBrowserFallbackForThinPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><head><title>SPA</title></head><body><div id="root"></div></body></html>`))
	}))
	defer srv.Close()

	rendered := articleHTML("<p>" + longText() + "</p>")
	f := New("TestAgent/1.0").WithBrowser(&fakeBrowser{html: rendered})

	page, err := f.Fetch(context.Background(), srv.URL+"/app")
	require.NoError(t, err)
	assert.Equal(t, core.FetchSuccess, page.Status)
	assert.Contains(t, page.Content, "statically typed")
}

func TestDetectBotBlockIgnoresDeepMentions(t *testing.T) {
	content := longText() + " Later in this long article we discuss how a captcha works in detail."
	blocked, _ := DetectBotBlock("How CAPTCHAs work internally explained", content)
	assert.True(t, blocked, "title mentions still count")

	blocked, _ = DetectBotBlock("Web security primer", content)
	assert.False(t, blocked, "mentions past the document head do not count")
}

func TestExtractContentParagraphFallback(t *testing.T) {
	html := `<html><head><title>T</title></head><body>
<div><p>` + longText() + `</p><p>short</p></div></body></html>`
	title, content, err := ExtractContent(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, "T", title)
	assert.Contains(t, content, "statically typed")
	assert.NotContains(t, content, "short", "tiny paragraphs are skipped")
}
