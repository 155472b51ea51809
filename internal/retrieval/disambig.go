package retrieval

import (
	"strings"

	"github.com/hunterwarburton/ferret/internal/config"
	"github.com/hunterwarburton/ferret/internal/logger"
	"github.com/hunterwarburton/ferret/internal/textutil"
)

// Disambiguator keeps near-collision entities apart: content about
// "tata motors" must not satisfy a "tata steel" query however many
// shared words they have.
type Disambiguator struct {
	rules      []config.EntityRule
	normalizer *textutil.Normalizer
}

// NewDisambiguator builds a Disambiguator from entity rules.
func NewDisambiguator(rules []config.EntityRule) *Disambiguator {
	return &Disambiguator{rules: rules, normalizer: textutil.NewNormalizer()}
}

// Match returns the entity rule triggered by the query, or nil.
func (d *Disambiguator) Match(query string) *config.EntityRule {
	normalized := " " + d.normalizer.Normalize(query) + " "
	for i := range d.rules {
		rule := &d.rules[i]
		allPresent := len(rule.Triggers) > 0
		for _, trigger := range rule.Triggers {
			if !strings.Contains(normalized, " "+trigger+" ") {
				allPresent = false
				break
			}
		}
		if allPresent {
			return rule
		}
	}
	return nil
}

// EnhanceQuery appends entity markers to sharpen search results. A
// query that triggers no rule is returned unchanged.
func (d *Disambiguator) EnhanceQuery(query string) string {
	rule := d.Match(query)
	if rule == nil {
		return query
	}
	var extras []string
	if len(rule.StockSymbols) > 0 {
		extras = append(extras, rule.StockSymbols[0])
	}
	if len(rule.IndustryKeywords) > 0 {
		extras = append(extras, rule.IndustryKeywords[0])
	}
	if len(extras) == 0 {
		return query
	}
	enhanced := query + " " + strings.Join(extras, " ")
	logger.Debug("Enhanced query %q -> %q", query, enhanced)
	return enhanced
}

// AdjustRelevance rescales a source's relevance for an entity-bound
// query. Content that names the excluded sibling entity but never the
// required one is collapsed to near zero; content that confirms the
// right entity gets a modest boost.
func (d *Disambiguator) AdjustRelevance(rule *config.EntityRule, content string, relevance float64) float64 {
	if rule == nil || content == "" {
		return relevance
	}
	lower := strings.ToLower(content)

	required := false
	for _, term := range rule.RequiredInContent {
		if strings.Contains(lower, strings.ToLower(term)) {
			required = true
			break
		}
	}

	excluded := false
	for _, term := range rule.ExcludeKeywords {
		if strings.Contains(lower, strings.ToLower(term)) {
			excluded = true
			break
		}
	}

	if excluded && !required {
		return relevance * 0.05
	}
	if !required && len(rule.RequiredInContent) > 0 {
		return relevance * 0.5
	}

	bonus := 0.0
	for _, sym := range rule.StockSymbols {
		if strings.Contains(lower, strings.ToLower(sym)) {
			bonus += 0.1
			break
		}
	}
	for _, kw := range rule.IndustryKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			bonus += 0.05
			break
		}
	}
	return clamp01(relevance + bonus)
}
