package retrieval

import (
	"net/url"
	"sort"
	"strings"

	"github.com/hunterwarburton/ferret/internal/textutil"
)

// authorityByDomain scores well-known hosts; unknown hosts get the default.
var authorityByDomain = map[string]float64{
	"wikipedia.org":         0.9,
	"github.com":            0.8,
	"stackoverflow.com":     0.8,
	"arxiv.org":             0.9,
	"nature.com":            0.9,
	"reuters.com":           0.85,
	"bloomberg.com":         0.8,
	"medium.com":            0.5,
	"reddit.com":            0.4,
	"quora.com":             0.4,
	"docs.python.org":       0.9,
	"developer.mozilla.org": 0.9,
}

const defaultAuthority = 0.5

var positiveIndicators = []string{
	"research", "study", "according to", "data", "analysis",
	"published", "report", "survey", "documentation", "official",
}

var negativeIndicators = []string{
	"click here", "buy now", "advertisement", "sponsored",
	"subscribe now", "limited offer", "sign up today",
}

// Scorer rates fetched pages against the query.
type Scorer struct {
	normalizer *textutil.Normalizer
}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{normalizer: textutil.NewNormalizer()}
}

// Relevance measures how well a page answers the query: token overlap
// with the title and content, with a bonus for the exact phrase and
// for search-snippet context.
func (s *Scorer) Relevance(query, title, content, snippet string) float64 {
	queryTokens := s.normalizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	score := overlapFraction(queryTokens, s.normalizer.Tokenize(title))*0.4 +
		overlapFraction(queryTokens, s.normalizer.Tokenize(content))*0.4

	normQuery := s.normalizer.Normalize(query)
	if normQuery != "" && strings.Contains(s.normalizer.Normalize(content), normQuery) {
		score += 0.2
	}
	if snippet != "" {
		score += overlapFraction(queryTokens, s.normalizer.Tokenize(snippet)) * 0.3
	}
	return clamp01(score)
}

// Authority scores the source host from a fixed reputation table, with
// a bump for educational and government domains.
func (s *Scorer) Authority(rawURL string) float64 {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultAuthority
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	if score, ok := authorityByDomain[host]; ok {
		return score
	}
	for domain, score := range authorityByDomain {
		if strings.HasSuffix(host, "."+domain) {
			return score
		}
	}
	switch {
	case strings.HasSuffix(host, ".gov"):
		return 0.9
	case strings.HasSuffix(host, ".edu"):
		return 0.8
	case strings.HasSuffix(host, ".org"):
		return 0.6
	}
	return defaultAuthority
}

// Quality rates the content itself: enough text, sentence structure in
// a human range, informative phrasing, and an absence of ad copy.
func (s *Scorer) Quality(content string) float64 {
	if content == "" {
		return 0
	}

	length := float64(len(content)) / 1000.0
	if length > 1 {
		length = 1
	}
	score := length * 0.4

	sentences := textutil.SplitSentences(content)
	if len(sentences) > 0 {
		words := len(strings.Fields(content))
		avg := float64(words) / float64(len(sentences))
		if avg >= 8 && avg <= 30 {
			score += 0.2
		} else if avg > 4 && avg < 40 {
			score += 0.1
		}
	}

	lower := strings.ToLower(content)
	positive := 0.0
	for _, ind := range positiveIndicators {
		if strings.Contains(lower, ind) {
			positive += 0.06
		}
	}
	if positive > 0.3 {
		positive = 0.3
	}
	score += positive

	negative := 0.0
	for _, ind := range negativeIndicators {
		if strings.Contains(lower, ind) {
			negative += 0.07
		}
	}
	if negative > 0.2 {
		negative = 0.2
	}
	score -= negative

	return clamp01(score)
}

// Combined blends the three signals into a ranking score.
func (s *Scorer) Combined(relevance, authority, quality float64) float64 {
	return relevance*0.4 + authority*0.3 + quality*0.3
}

// KeyTopics extracts up to n salient terms from the content.
func (s *Scorer) KeyTopics(content string, n int) []string {
	freq := s.normalizer.TokenFrequency(content)
	type pair struct {
		token string
		count int
	}
	pairs := make([]pair, 0, len(freq))
	for tok, count := range freq {
		if count < 2 {
			continue
		}
		pairs = append(pairs, pair{tok, count})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].token < pairs[j].token
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	topics := make([]string, len(pairs))
	for i, p := range pairs {
		topics[i] = p.token
	}
	return topics
}

// Domain returns the registrable-ish host for diversity capping.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func overlapFraction(query, doc []string) float64 {
	if len(query) == 0 {
		return 0
	}
	docSet := make(map[string]struct{}, len(doc))
	for _, t := range doc {
		docSet[t] = struct{}{}
	}
	hits := 0
	for _, t := range query {
		if _, ok := docSet[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
