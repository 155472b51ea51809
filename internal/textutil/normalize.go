package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// Normalizer canonicalizes query and document text for hashing,
// token overlap and topic extraction.
type Normalizer struct {
	stopWords map[string]bool
	minLength int
	maxLength int
}

// NewNormalizer creates a Normalizer with the default English stop word list.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		stopWords: defaultStopWords(),
		minLength: 2,
		maxLength: 50,
	}
}

// Normalize lowercases, strips punctuation and collapses whitespace.
// Two queries that differ only in casing, punctuation or spacing
// normalize to the same string.
func (n *Normalizer) Normalize(text string) string {
	text = strings.ToLower(text)

	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "and")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize returns the stop-word-filtered tokens of text.
func (n *Normalizer) Tokenize(text string) []string {
	words := wordPattern.FindAllString(n.Normalize(text), -1)

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if n.stopWords[word] {
			continue
		}
		if len(word) < n.minLength || len(word) > n.maxLength {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// StemmedTokens returns the tokens of text reduced to their stems.
func (n *Normalizer) StemmedTokens(text string) []string {
	tokens := n.Tokenize(text)
	stemmed := make([]string, len(tokens))
	for i, tok := range tokens {
		stemmed[i] = Stem(tok)
	}
	return stemmed
}

// TokenFrequency returns token counts for text.
func (n *Normalizer) TokenFrequency(text string) map[string]int {
	freq := make(map[string]int)
	for _, tok := range n.Tokenize(text) {
		freq[tok]++
	}
	return freq
}

// Stem reduces an English word to its stem. The word is returned
// unchanged when stemming fails.
func Stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil {
		return word
	}
	return stemmed
}

func defaultStopWords() map[string]bool {
	words := []string{
		"a", "an", "the",

		"i", "me", "my", "we", "our", "you", "your",
		"he", "him", "his", "she", "her", "it", "its",
		"they", "them", "their",

		"of", "at", "by", "for", "with", "about", "against", "between",
		"into", "through", "during", "before", "after", "above", "below",
		"to", "from", "up", "down", "in", "out", "on", "off", "over", "under",

		"and", "or", "but", "if", "while", "because", "as", "until",
		"than", "so", "nor", "yet",

		"is", "am", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "having",
		"do", "does", "did", "doing",
		"will", "would", "should", "could", "can", "may", "might", "must",

		"this", "that", "these", "those",
		"what", "which", "who", "whom", "whose", "when", "where", "why", "how",
		"all", "each", "every", "both", "few", "more", "most", "other", "some", "such",
		"no", "not", "only", "own", "same", "then", "there", "too", "very",
	}

	stopWords := make(map[string]bool, len(words))
	for _, word := range words {
		stopWords[word] = true
	}
	return stopWords
}
