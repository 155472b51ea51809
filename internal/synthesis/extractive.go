package synthesis

import (
	"sort"
	"strings"

	"github.com/hunterwarburton/ferret/internal/textutil"
)

// Extractor picks the most informative sentences out of raw source
// text when no language model is available.
type Extractor struct {
	normalizer *textutil.Normalizer
}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{normalizer: textutil.NewNormalizer()}
}

type scoredSentence struct {
	text     string
	position int
	score    float64
}

// Summarize returns up to maxSentences sentences from content, chosen
// by term frequency, overlap with the query and position in the text,
// reassembled in their original order.
func (e *Extractor) Summarize(query, content string, maxSentences int) string {
	sentences := textutil.SplitSentences(content)
	if len(sentences) == 0 {
		return ""
	}
	if maxSentences <= 0 {
		maxSentences = 5
	}

	freq := e.normalizer.TokenFrequency(content)
	queryTokens := make(map[string]bool)
	for _, tok := range e.normalizer.StemmedTokens(query) {
		queryTokens[tok] = true
	}

	scored := make([]scoredSentence, 0, len(sentences))
	for i, sentence := range sentences {
		tokens := e.normalizer.StemmedTokens(sentence)
		if len(tokens) < 3 {
			continue
		}

		var freqScore float64
		queryHits := 0
		for _, tok := range tokens {
			freqScore += float64(freq[tok])
			if queryTokens[tok] {
				queryHits++
			}
		}
		freqScore /= float64(len(tokens))

		score := freqScore
		if len(queryTokens) > 0 {
			score += 2.0 * float64(queryHits) / float64(len(queryTokens))
		}
		// Leading sentences tend to carry the main point.
		if i < 3 {
			score += 0.5
		}
		scored = append(scored, scoredSentence{text: sentence, position: i, score: score})
	}
	if len(scored) == 0 {
		return ""
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > maxSentences {
		scored = scored[:maxSentences]
	}
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].position < scored[j].position
	})

	parts := make([]string, len(scored))
	for i, s := range scored {
		parts[i] = s.text
	}
	return strings.Join(parts, " ")
}
