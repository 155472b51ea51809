package retrieval

import (
	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
	"github.com/hunterwarburton/ferret/internal/textutil"
)

// overlapThreshold is the token overlap above which two pages are
// treated as the same document.
const overlapThreshold = 0.85

// dedupe collapses near-duplicate successful sources, keeping the
// higher-scored copy. Inputs must already be sorted best first.
func dedupe(sources []core.SourceRecord) []core.SourceRecord {
	normalizer := textutil.NewNormalizer()

	seenHash := make(map[string]bool)
	var keptTokens [][]string
	out := make([]core.SourceRecord, 0, len(sources))

	for _, src := range sources {
		if !src.FetchStatus.Usable() {
			out = append(out, src)
			continue
		}

		hash := core.ContentHash(src.RawContent)
		if seenHash[hash] {
			logger.Debug("Dropping exact duplicate of %s", src.URL)
			continue
		}

		tokens := normalizer.Tokenize(src.RawContent)
		duplicate := false
		for _, prev := range keptTokens {
			if textutil.TokenOverlap(tokens, prev) > overlapThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			logger.Debug("Dropping near duplicate %s", src.URL)
			continue
		}

		seenHash[hash] = true
		keptTokens = append(keptTokens, tokens)
		out = append(out, src)
	}
	return out
}

// capPerDomain limits how many successful sources a single host may
// contribute. Inputs must already be sorted best first.
func capPerDomain(sources []core.SourceRecord, cap int) []core.SourceRecord {
	if cap <= 0 {
		return sources
	}
	perDomain := make(map[string]int)
	out := make([]core.SourceRecord, 0, len(sources))
	for _, src := range sources {
		if !src.FetchStatus.Usable() {
			out = append(out, src)
			continue
		}
		domain := Domain(src.URL)
		if perDomain[domain] >= cap {
			logger.Debug("Domain cap reached for %s, dropping %s", domain, src.URL)
			continue
		}
		perDomain[domain]++
		out = append(out, src)
	}
	return out
}
