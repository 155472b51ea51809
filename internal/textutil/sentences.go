package textutil

import (
	"regexp"
	"strings"
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

// SplitSentences breaks text into trimmed sentences. Trailing text
// without terminal punctuation counts as a final sentence.
func SplitSentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// SentenceKey normalizes a sentence for duplicate detection.
func SentenceKey(sentence string) string {
	lower := strings.ToLower(sentence)
	lower = strings.TrimRight(lower, ".!? ")
	return strings.Join(strings.Fields(lower), " ")
}
