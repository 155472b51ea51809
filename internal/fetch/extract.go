package fetch

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxContentLength caps extracted text before scoring.
const maxContentLength = 500000

// blockMarkers are phrases that indicate an anti-bot interstitial
// rather than real page content.
var blockMarkers = []string{
	"captcha",
	"are you a robot",
	"verify you are human",
	"access denied",
	"unusual traffic",
	"enable javascript and cookies",
	"attention required",
	"request blocked",
}

// ExtractContent parses HTML and pulls out the title and main text.
func ExtractContent(r io.Reader) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	body := doc.Clone()
	body.Find("script, style, nav, header, footer, aside, iframe, noscript, form, button").Remove()

	// Semantic containers first, then common content selectors, then
	// paragraph aggregation, then the whole body.
	for _, sel := range []string{"article", "main", "#content", ".content", ".post-content", ".entry-content", "[role='main']"} {
		if elem := body.Find(sel).First(); elem.Length() > 0 {
			if text := squeeze(elem.Text()); len(text) >= minContentLength {
				return title, clip(text), nil
			}
		}
	}

	var paragraphs []string
	body.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) > 20 {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		return title, clip(squeeze(strings.Join(paragraphs, " "))), nil
	}

	return title, clip(squeeze(body.Find("body").Text())), nil
}

// DetectBotBlock scans extracted text for anti-bot interstitial
// signatures. Matches only count near the start of the document, where
// challenge pages put them; an article discussing CAPTCHAs is fine.
func DetectBotBlock(title, content string) (bool, string) {
	haystack := strings.ToLower(title)
	lower := strings.ToLower(content)
	if len(lower) > 600 {
		lower = lower[:600]
	}
	haystack += " " + lower

	for _, marker := range blockMarkers {
		if strings.Contains(haystack, marker) {
			return true, marker
		}
	}
	return false, ""
}

func squeeze(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func clip(text string) string {
	if len(text) > maxContentLength {
		return text[:maxContentLength]
	}
	return text
}
