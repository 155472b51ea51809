package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCanonicalizes(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"casing", "Best PYTHON Framework", "best python framework"},
		{"punctuation", "what is go?!", "what is go"},
		{"whitespace", "  latest   ai\tnews \n", "latest ai news"},
		{"hyphens", "state-of-the-art models", "state of the art models"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizeEquivalentVariants(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t,
		n.Normalize("Tata Steel share price?"),
		n.Normalize("tata steel  SHARE price"))
}

func TestTokenizeFiltersStopWords(t *testing.T) {
	n := NewNormalizer()
	tokens := n.Tokenize("What is the best Python web framework?")
	assert.Equal(t, []string{"best", "python", "web", "framework"}, tokens)
}

func TestStemmedTokens(t *testing.T) {
	n := NewNormalizer()
	tokens := n.StemmedTokens("running runners run")
	require.Len(t, tokens, 3)
	assert.Equal(t, tokens[0], tokens[1][:len(tokens[0])])
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Go is fast. It compiles quickly! Does it scale? yes")
	require.Len(t, got, 4)
	assert.Equal(t, "Go is fast.", got[0])
	assert.Equal(t, "yes", got[3])
}

func TestSentenceKey(t *testing.T) {
	assert.Equal(t, SentenceKey("Go is  Fast."), SentenceKey("go is fast"))
}
